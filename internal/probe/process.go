package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	gops "github.com/shirou/gopsutil/v4/process"
)

// ProcessState classifies the result of a process-table scan.
type ProcessState int

const (
	ProcessAbsent ProcessState = iota
	ProcessAliveUnique
	ProcessAliveDuplicate
)

func (s ProcessState) String() string {
	switch s {
	case ProcessAbsent:
		return "absent"
	case ProcessAliveUnique:
		return "alive"
	case ProcessAliveDuplicate:
		return "alive-duplicate"
	default:
		return "unknown"
	}
}

// Alive reports whether at least one matching process exists.
func (s ProcessState) Alive() bool { return s != ProcessAbsent }

// ProcessReport is the outcome of one scan. Err is set when the process
// table itself could not be queried; the state is then Absent (the probe
// fails open and never reports alive on a query failure).
type ProcessReport struct {
	State ProcessState
	PIDs  []int32
	Err   error
}

// ProcessProbe finds the OS processes belonging to one server by
// matching a token against each process command line, the same way an
// operator would pick the right java process out of ps output.
type ProcessProbe struct {
	match string
}

func NewProcessProbe(match string) *ProcessProbe {
	return &ProcessProbe{match: match}
}

// Scan walks the process table and classifies the server's process
// presence. Exactly one match is the healthy case; more than one means
// a failed prior restart or an operator-launched duplicate.
func (p *ProcessProbe) Scan(ctx context.Context) ProcessReport {
	procs, err := gops.ProcessesWithContext(ctx)
	if err != nil {
		return ProcessReport{State: ProcessAbsent, Err: fmt.Errorf("query process table: %w", err)}
	}
	var pids []int32
	for _, pr := range procs {
		args, err := pr.CmdlineSliceWithContext(ctx)
		if err != nil {
			// Processes exit mid-scan; not an error for the scan itself.
			continue
		}
		for _, arg := range args {
			if strings.Contains(arg, p.match) {
				pids = append(pids, pr.Pid)
				break
			}
		}
	}
	switch len(pids) {
	case 0:
		return ProcessReport{State: ProcessAbsent}
	case 1:
		return ProcessReport{State: ProcessAliveUnique, PIDs: pids}
	default:
		return ProcessReport{State: ProcessAliveDuplicate, PIDs: pids}
	}
}

// Uptime returns how long the given process has been running.
func (p *ProcessProbe) Uptime(ctx context.Context, pid int32) (time.Duration, error) {
	pr, err := gops.NewProcessWithContext(ctx, pid)
	if err != nil {
		return 0, err
	}
	createdMs, err := pr.CreateTimeWithContext(ctx)
	if err != nil {
		return 0, err
	}
	created := time.UnixMilli(createdMs)
	return time.Since(created), nil
}
