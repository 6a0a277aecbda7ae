// Package slurm is the thin gateway to the cluster batch system. It wraps
// sbatch/squeue/sacct/scancel plus site-specific account discovery, and
// maps the scheduler's native state vocabulary onto the six canonical
// states used by the controller.
package slurm

import (
	"context"
	"fmt"
	"os/exec"
	"os/user"
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/interfaces"
	"github.com/expressdiff/expressdiff/internal/models"
)

var jobIDPattern = regexp.MustCompile(`Submitted batch job (\d+)`)

// CommandRunner executes an external command and returns its stdout.
// Swappable in tests.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, error)

// Client talks to the batch scheduler through external commands.
type Client struct {
	config common.SlurmConfig
	logger arbor.ILogger
	run    CommandRunner
}

// NewClient creates a scheduler gateway using the real cluster commands.
func NewClient(config common.SlurmConfig, logger arbor.ILogger) *Client {
	return &Client{
		config: config,
		logger: logger,
		run:    execCommand,
	}
}

// NewClientWithRunner creates a gateway with a custom command runner.
func NewClientWithRunner(config common.SlurmConfig, logger arbor.ILogger, run CommandRunner) *Client {
	return &Client{config: config, logger: logger, run: run}
}

func execCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return stdout.String(), fmt.Errorf("%s: %s", name, msg)
	}
	return stdout.String(), nil
}

// Submit runs sbatch on a generated script and parses the job id from its
// stdout.
func (c *Client) Submit(ctx context.Context, scriptPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.CommandTimeout)
	defer cancel()

	stdout, err := c.run(ctx, "sbatch", scriptPath)
	if err != nil {
		return "", fmt.Errorf("%w: submission failed: %v", models.ErrScheduler, err)
	}

	match := jobIDPattern.FindStringSubmatch(stdout)
	if match == nil {
		return "", fmt.Errorf("%w: could not parse job id from sbatch output: %q", models.ErrScheduler, strings.TrimSpace(stdout))
	}
	return match[1], nil
}

// Status resolves a job id against the live queue first (squeue), then the
// accounting history (sacct). Jobs absent from both are UNKNOWN.
func (c *Client) Status(ctx context.Context, jobID string) (interfaces.JobState, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.CommandTimeout)
	defer cancel()

	if stdout, err := c.run(ctx, "squeue", "-j", jobID, "-h", "-o", "%T"); err == nil {
		if state := strings.TrimSpace(stdout); state != "" {
			return mapNativeState(state), nil
		}
	}

	stdout, err := c.run(ctx, "sacct", "-j", jobID, "--format=JobID,State", "--noheader", "-P")
	if err != nil {
		if ctx.Err() != nil {
			return interfaces.JobStateUnknown, fmt.Errorf("%w: status query timed out for job %s", models.ErrScheduler, jobID)
		}
		// Accounting may be unavailable on some clusters; report unknown
		// rather than failing the reconciliation.
		c.logger.Debug().Err(err).Str("job_id", jobID).Msg("sacct query failed")
		return interfaces.JobStateUnknown, nil
	}

	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 2 {
			continue
		}
		// Skip the .batch / .extern sub-steps; the parent row carries the
		// job state.
		if strings.Contains(fields[0], ".") {
			continue
		}
		return mapNativeState(fields[1]), nil
	}
	return interfaces.JobStateUnknown, nil
}

// Cancel runs scancel. Best-effort: callers log failures and move on.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.CommandTimeout)
	defer cancel()

	if _, err := c.run(ctx, "scancel", jobID); err != nil {
		return fmt.Errorf("%w: cancel failed for job %s: %v", models.ErrScheduler, jobID, err)
	}
	return nil
}

// Accounts discovers charge accounts via the site "allocations" command,
// falling back to sacctmgr associations and finally to the configured
// default list. Always returns at least one element.
func (c *Client) Accounts(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, c.config.AccountsTimeout)
	defer cancel()

	if accounts := c.accountsFromAllocations(ctx); len(accounts) > 0 {
		return accounts
	}
	if accounts := c.accountsFromAssociations(ctx); len(accounts) > 0 {
		return accounts
	}

	c.logger.Warn().Msg("Account discovery failed, using default account list")
	return append([]string{}, c.config.DefaultAccounts...)
}

// accountsFromAllocations parses the site allocations table: two header
// lines, then "Account Balance Reserved Available" rows, possibly followed
// by trailing help text.
func (c *Client) accountsFromAllocations(ctx context.Context) []string {
	stdout, err := c.run(ctx, "allocations")
	if err != nil {
		c.logger.Debug().Err(err).Msg("allocations command failed")
		return nil
	}

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) < 3 {
		return nil
	}

	var accounts []string
	for _, line := range lines[2:] {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "for more information") || strings.HasPrefix(line, "run:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		name := fields[0]
		if strings.Contains(strings.ToLower(name), "information") || strings.Contains(strings.ToLower(name), "help") {
			continue
		}
		accounts = append(accounts, name)
	}
	return accounts
}

// accountsFromAssociations reads the caller's account associations from
// sacctmgr in parseable form.
func (c *Client) accountsFromAssociations(ctx context.Context) []string {
	current, err := user.Current()
	if err != nil {
		return nil
	}

	stdout, err := c.run(ctx, "sacctmgr", "show", "associations", "user="+current.Username, "-n", "-P")
	if err != nil {
		c.logger.Debug().Err(err).Msg("sacctmgr query failed")
		return nil
	}

	seen := map[string]bool{}
	for _, line := range strings.Split(stdout, "\n") {
		fields := strings.Split(line, "|")
		if len(fields) >= 2 && fields[1] != "" {
			seen[fields[1]] = true
		}
	}

	accounts := make([]string, 0, len(seen))
	for account := range seen {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	return accounts
}

// mapNativeState folds the scheduler's state vocabulary into the canonical
// set. Cancelled states arrive as "CANCELLED" or "CANCELLED by <uid>".
func mapNativeState(native string) interfaces.JobState {
	state := strings.ToUpper(strings.TrimSpace(native))
	switch {
	case strings.HasPrefix(state, "CANCELLED"):
		return interfaces.JobStateCancelled
	case state == "PENDING" || state == "PD" || state == "SUSPENDED" || state == "REQUEUED":
		return interfaces.JobStatePending
	case state == "RUNNING" || state == "R" || state == "COMPLETING" || state == "CONFIGURING":
		return interfaces.JobStateRunning
	case state == "COMPLETED" || state == "CD":
		return interfaces.JobStateCompleted
	case state == "FAILED" || state == "TIMEOUT" || state == "OUT_OF_MEMORY" ||
		state == "NODE_FAIL" || state == "BOOT_FAIL" || state == "DEADLINE" || state == "PREEMPTED":
		return interfaces.JobStateFailed
	default:
		return interfaces.JobStateUnknown
	}
}
