package systemdctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJournalctlArgsDefault(t *testing.T) {
	args := journalctlArgs("castle-api.service", TailOptions{})
	assert.Equal(t, []string{"--user", "-u", "castle-api.service", "--no-pager"}, args)
}

func TestJournalctlArgsLinesAndFollow(t *testing.T) {
	args := journalctlArgs("castle-api.service", TailOptions{Lines: 50, Follow: true})
	assert.Equal(t, []string{"--user", "-u", "castle-api.service", "--no-pager", "-n", "50", "-f"}, args)
}
