package studio

import (
	"fmt"
	"time"
)

// Viewer is the Result Viewer State derived from a snapshot.
type Viewer struct {
	Artifacts []Artifact
	Selected  int
}

func View(st State) Viewer {
	return Viewer{Artifacts: st.Batch, Selected: st.SelectedIndex}
}

func (v Viewer) Empty() bool {
	return len(v.Artifacts) == 0
}

// Current returns the selected artifact. ok is false for an empty batch.
// An out-of-range selection on a non-empty batch is a programming error and
// panics; Session's clamped setters never produce one.
func (v Viewer) Current() (Artifact, bool) {
	if len(v.Artifacts) == 0 {
		return "", false
	}
	if v.Selected < 0 || v.Selected >= len(v.Artifacts) {
		panic(fmt.Sprintf("studio: selection %d outside batch of %d", v.Selected, len(v.Artifacts)))
	}
	return v.Artifacts[v.Selected], true
}

// Position is the 1-based "n / total" pair shown next to the viewer.
func (v Viewer) Position() (int, int) {
	if len(v.Artifacts) == 0 {
		return 0, 0
	}
	return v.Selected + 1, len(v.Artifacts)
}

// DownloadName is the file name an exported artifact is saved under.
func DownloadName(now time.Time) string {
	return fmt.Sprintf("TEMUDESIGN_%d.png", now.UnixMilli())
}
