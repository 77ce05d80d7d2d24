package tui

import (
	"time"

	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/mcp/client"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

// analysisDoneMsg is sent when an analysis request completes successfully.
type analysisDoneMsg struct {
	report  *models.RCAReport
	elapsed time.Duration
}

// analysisFailedMsg is sent when an analysis request returns an error.
type analysisFailedMsg struct {
	err error
}

// statsDoneMsg is sent when the /stats command completes.
type statsDoneMsg struct {
	stats *corpus.Stats
}

// refreshDoneMsg is sent when the /refresh command completes.
type refreshDoneMsg struct {
	result  *client.RefreshResult
	elapsed time.Duration
}

// commandFailedMsg is sent when a slash command fails.
type commandFailedMsg struct {
	command string
	err     error
}
