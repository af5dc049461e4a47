package generate

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/payneio/castle/internal/registry"
)

type timerView struct {
	Description     string
	OnCalendar      string
	OnUnitActiveSec int
}

// TimerUnit renders the systemd timer file for a job. Its OnCalendar or
// OnUnitActiveSec fields come from cronToCalendar's conversion of
// dc.Schedule (spec.md §4.3's exhaustive rule table).
func TimerUnit(id string, dc *registry.DeployedComponent) (string, error) {
	if dc == nil {
		return "", fmt.Errorf("generate: nil component for %s", id)
	}
	if dc.Schedule == "" {
		return "", fmt.Errorf("generate: %s has no schedule", id)
	}

	desc := dc.Description
	if desc == "" {
		desc = id
	}

	onCalendar, onUnitActiveSec := cronToCalendar(dc.Schedule)
	v := timerView{
		Description:     desc,
		OnCalendar:      onCalendar,
		OnUnitActiveSec: onUnitActiveSec,
	}

	var buf bytes.Buffer
	if err := timerTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render timer %s: %w", id, err)
	}
	return buf.String(), nil
}

var (
	// m h * * * with digit-only m,h.
	dailyAtRe = regexp.MustCompile(`^(\d{1,2}) (\d{1,2}) \* \* \*$`)
	// */N * * * *
	everyNMinutesRe = regexp.MustCompile(`^\*/(\d{1,2}) \* \* \* \*$`)
)

// cronToCalendar converts the supported cron subset to a systemd OnCalendar
// expression, or an OnUnitActiveSec interval when no calendar form applies.
// Exhaustive per spec.md §4.3:
//   - "m h * * *"   -> OnCalendar "*-*-* HH:MM:00"
//   - "*/N * * * *" -> OnUnitActiveSec N*60
//   - anything else -> OnUnitActiveSec 300 (fallback)
func cronToCalendar(schedule string) (onCalendar string, onUnitActiveSec int) {
	if m := dailyAtRe.FindStringSubmatch(schedule); m != nil {
		hh, _ := strconv.Atoi(m[2])
		mm, _ := strconv.Atoi(m[1])
		if hh <= 23 && mm <= 59 {
			return fmt.Sprintf("*-*-* %02d:%02d:00", hh, mm), 0
		}
	}
	if m := everyNMinutesRe.FindStringSubmatch(schedule); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n > 0 {
			return "", n * 60
		}
	}
	return "", 300
}
