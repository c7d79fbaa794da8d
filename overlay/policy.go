package overlay

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/markerar/vision/fiducial"
)

// A Candidate is one marker's pose and the view matrix computed from it.
type Candidate struct {
	Pose fiducial.MarkerPose
	View ViewMatrix
}

// ComputeViews computes the view matrix of every pose, keeping detection order.
func ComputeViews(poses []fiducial.MarkerPose, unitScale float64) []Candidate {
	candidates := make([]Candidate, 0, len(poses))
	for _, pose := range poses {
		candidates = append(candidates, Candidate{Pose: pose, View: PoseToView(pose, unitScale)})
	}
	return candidates
}

// A SelectionPolicy picks which marker drives the view when several are visible. It returns
// false when none of the candidates is acceptable.
type SelectionPolicy interface {
	Select(candidates []Candidate) (Candidate, bool)
	String() string
}

// LastMarker picks the last candidate in detection order.
type LastMarker struct{}

// Select returns the last candidate.
func (LastMarker) Select(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	return candidates[len(candidates)-1], true
}

func (LastMarker) String() string { return "last" }

// FirstMarker picks the first candidate in detection order.
type FirstMarker struct{}

// Select returns the first candidate.
func (FirstMarker) Select(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	return candidates[0], true
}

func (FirstMarker) String() string { return "first" }

// MarkerID only follows the marker with the given id. If the id shows up more than once the
// last one wins.
type MarkerID int

// Select returns the last candidate with a matching id.
func (id MarkerID) Select(candidates []Candidate) (Candidate, bool) {
	for i := len(candidates) - 1; i >= 0; i-- {
		if candidates[i].Pose.ID == int(id) {
			return candidates[i], true
		}
	}
	return Candidate{}, false
}

func (id MarkerID) String() string { return "id:" + strconv.Itoa(int(id)) }

// NearestMarker picks the candidate closest to the camera. Ties go to the earlier detection.
type NearestMarker struct{}

// Select returns the candidate with the smallest translation norm.
func (NearestMarker) Select(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := 0
	bestDist := candidates[0].Pose.Translation.Norm()
	for i := 1; i < len(candidates); i++ {
		if d := candidates[i].Pose.Translation.Norm(); d < bestDist {
			best, bestDist = i, d
		}
	}
	return candidates[best], true
}

func (NearestMarker) String() string { return "nearest" }

// DefaultSelectionPolicy is last marker wins.
func DefaultSelectionPolicy() SelectionPolicy {
	return LastMarker{}
}

// ParseSelectionPolicy reads "last", "first", "nearest" or "id:<n>". An empty string is the
// default policy.
func ParseSelectionPolicy(s string) (SelectionPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "last":
		return LastMarker{}, nil
	case "first":
		return FirstMarker{}, nil
	case "nearest":
		return NearestMarker{}, nil
	}
	if rest, ok := strings.CutPrefix(s, "id:"); ok {
		id, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return nil, errors.Wrapf(err, "bad marker id in selection policy %q", s)
		}
		return MarkerID(id), nil
	}
	return nil, errors.Errorf("unknown selection policy %q, expected last, first, nearest or id:<n>", s)
}
