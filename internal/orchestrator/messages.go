package orchestrator

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"motionlab/internal/domain"
)

const (
	msgQueued  = "High demand right now. Your order is queued and will start automatically."
	msgStarted = "Generation started. This can take a few minutes."
)

func msgProgress(pct int) string {
	return fmt.Sprintf("Generating your video... %d%%", pct)
}

func msgRefunded(balance int) string {
	return fmt.Sprintf("Your credit has been returned. Balance: %d.", balance)
}

var labelCaser = cases.Title(language.English)

// resultLabel renders a human label for a job, derived from its model name
// when set ("veo-3.0-generate-001" becomes "Veo 3.0 Generate 001").
func resultLabel(j *domain.Job) string {
	name := j.Model
	if name == "" {
		name = string(j.Provider)
	}
	return labelCaser.String(strings.ReplaceAll(name, "-", " "))
}

// msgResults formats the delivery message: a single result goes out plain, a
// multi-result order enumerates each labeled link in submission order.
func msgResults(succeeded []domain.Job) string {
	if len(succeeded) == 1 {
		return "Your video is ready:\n" + succeeded[0].ResultRef
	}
	var b strings.Builder
	b.WriteString("Your videos are ready:\n")
	for i := range succeeded {
		fmt.Fprintf(&b, "%d. %s\n%s\n", i+1, resultLabel(&succeeded[i]), succeeded[i].ResultRef)
	}
	return strings.TrimRight(b.String(), "\n")
}
