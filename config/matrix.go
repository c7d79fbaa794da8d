package config

import (
	"bytes"
	"encoding/json"
	"regexp"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// openCVMatrixTag is the long form of the !!opencv-matrix tag that calibration tools put on matrix
// nodes.
const openCVMatrixTag = "tag:yaml.org,2002:opencv-matrix"

var (
	// calibration tools write "%YAML:1.0", which is not a directive a YAML 1.2 parser accepts.
	openCVHeaderRegexp = regexp.MustCompile(`(?m)\A%YAML[: ]1\.\d+[ \t]*\r?\n(---[ \t]*\r?\n)?`)
	openCVTagRegexp    = regexp.MustCompile(`!!opencv-(nd-)?matrix`)
)

// Matrix is a row major matrix in the layout calibration files use. It decodes from a
// {rows, cols, dt, data} mapping, a nested list of rows, or a flat list (a single row).
type Matrix struct {
	Rows int
	Cols int
	Data []float64
}

type matrixFields struct {
	Rows int       `json:"rows" yaml:"rows"`
	Cols int       `json:"cols" yaml:"cols"`
	Dt   string    `json:"dt,omitempty" yaml:"dt"`
	Data []float64 `json:"data" yaml:"data,flow"`
}

func (m *Matrix) fromFields(f matrixFields) error {
	if f.Rows < 0 || f.Cols < 0 || f.Rows*f.Cols != len(f.Data) {
		return errors.Errorf("matrix declares %dx%d but has %d elements", f.Rows, f.Cols, len(f.Data))
	}
	*m = Matrix{Rows: f.Rows, Cols: f.Cols, Data: f.Data}
	return nil
}

func (m *Matrix) fromRows(rows [][]float64) error {
	if len(rows) == 0 {
		*m = Matrix{}
		return nil
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return errors.Errorf("matrix row %d has %d elements, expected %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	*m = Matrix{Rows: len(rows), Cols: cols, Data: data}
	return nil
}

// UnmarshalYAML decodes any of the accepted layouts.
func (m *Matrix) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var f matrixFields
		if err := node.Decode(&f); err != nil {
			return err
		}
		return m.fromFields(f)
	case yaml.SequenceNode:
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			var rows [][]float64
			if err := node.Decode(&rows); err != nil {
				return err
			}
			return m.fromRows(rows)
		}
		var flat []float64
		if err := node.Decode(&flat); err != nil {
			return err
		}
		*m = Matrix{Rows: 1, Cols: len(flat), Data: flat}
		return nil
	default:
		return errors.Errorf("line %d: expected a matrix, got %q", node.Line, node.Value)
	}
}

// MarshalYAML writes the tagged mapping layout.
func (m Matrix) MarshalYAML() (interface{}, error) {
	var node yaml.Node
	if err := node.Encode(matrixFields{Rows: m.Rows, Cols: m.Cols, Dt: "d", Data: m.Data}); err != nil {
		return nil, err
	}
	node.Tag = openCVMatrixTag
	return &node, nil
}

// UnmarshalJSON decodes any of the accepted layouts.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty matrix")
	}
	switch data[0] {
	case '{':
		var f matrixFields
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		return m.fromFields(f)
	case '[':
		var rows [][]float64
		if err := json.Unmarshal(data, &rows); err == nil {
			return m.fromRows(rows)
		}
		var flat []float64
		if err := json.Unmarshal(data, &flat); err != nil {
			return err
		}
		*m = Matrix{Rows: 1, Cols: len(flat), Data: flat}
		return nil
	default:
		return errors.Errorf("expected a matrix, got %s", string(data))
	}
}

// MarshalJSON writes the mapping layout.
func (m Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(matrixFields{Rows: m.Rows, Cols: m.Cols, Data: m.Data})
}

// IsVector reports whether the matrix is a single row or column.
func (m Matrix) IsVector() bool {
	return m.Rows == 1 || m.Cols == 1
}

// stripOpenCVYAML removes the parts of an OpenCV FileStorage document that are not plain YAML.
func stripOpenCVYAML(data []byte) []byte {
	data = openCVHeaderRegexp.ReplaceAll(data, nil)
	return openCVTagRegexp.ReplaceAll(data, nil)
}
