// Package procsvc implements list_processes and kill_process on top of
// gopsutil, the cross-platform process-enumeration library this codebase's
// dependency set already carries. No component hand-rolls /proc parsing.
package procsvc

import (
	"strings"
	"sync"
	"time"

	psprocess "github.com/shirou/gopsutil/v3/process"

	"github.com/babybirdprd/mcp-rg-editor/internal/toolerr"
)

// ProcessInfo is one list_processes row.
type ProcessInfo struct {
	PID     int32   `json:"pid"`
	Name    string  `json:"name"`
	CPUPct  float64 `json:"cpu_pct"`
	MemBytes uint64  `json:"mem_bytes"`
	Command string  `json:"command"`
	Status  string  `json:"status"`
}

// cpuSample is the last total CPU time observed for a pid, used to turn
// gopsutil's cumulative process times into a delta-since-last-snapshot
// percentage.
type cpuSample struct {
	at    time.Time
	total float64
}

// Service enumerates and signals OS processes. CPU percent is computed as
// a delta against the previous sample of the same Service instance: each
// ListProcesses call creates fresh psprocess.Process values, so gopsutil's
// own CPUPercent (which tracks state per Process instance) would otherwise
// report a lifetime average instead; Service caches the prior total time
// per pid itself to get a true since-last-call rate.
type Service struct {
	mu    sync.Mutex
	prior map[int32]cpuSample
}

// New builds a Service.
func New() *Service { return &Service{prior: make(map[int32]cpuSample)} }

// ListProcesses snapshots every running process visible to this user.
func (s *Service) ListProcesses() ([]ProcessInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	procs, err := psprocess.Processes()
	if err != nil {
		return nil, toolerr.New(toolerr.Internal, "list_processes: %v", err)
	}

	seen := make(map[int32]bool, len(procs))
	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, _ := p.Name()
		memInfo, _ := p.MemoryInfo()
		cmdline, _ := p.Cmdline()
		statuses, _ := p.Status()

		cpuPct := s.cpuPercentSince(p, now)
		seen[p.Pid] = true

		var memBytes uint64
		if memInfo != nil {
			memBytes = memInfo.RSS
		}

		out = append(out, ProcessInfo{
			PID:      p.Pid,
			Name:     name,
			CPUPct:   cpuPct,
			MemBytes: memBytes,
			Command:  cmdline,
			Status:   strings.Join(statuses, ","),
		})
	}

	for pid := range s.prior {
		if !seen[pid] {
			delete(s.prior, pid)
		}
	}
	return out, nil
}

// cpuPercentSince returns the CPU percentage p used since the previous
// ListProcesses call that observed the same pid, recording now's sample
// for the next call. The first observation of a pid reports 0, since there
// is no prior sample to delta against.
func (s *Service) cpuPercentSince(p *psprocess.Process, now time.Time) float64 {
	times, err := p.Times()
	if err != nil || times == nil {
		return 0
	}
	total := times.Total()

	var pct float64
	if prev, ok := s.prior[p.Pid]; ok {
		if elapsed := now.Sub(prev.at).Seconds(); elapsed > 0 {
			pct = ((total - prev.total) / elapsed) * 100
			if pct < 0 {
				pct = 0
			}
		}
	}
	s.prior[p.Pid] = cpuSample{at: now, total: total}
	return pct
}

// KillProcess best-effort terminates pid, reporting permission errors
// distinctly from not-found.
func (s *Service) KillProcess(pid int32) error {
	proc, err := psprocess.NewProcess(pid)
	if err != nil {
		return toolerr.New(toolerr.SessionNotFound, "kill_process: pid %d not found", pid)
	}
	if exists, _ := psprocess.PidExists(pid); !exists {
		return toolerr.New(toolerr.SessionNotFound, "kill_process: pid %d not found", pid)
	}
	if err := proc.Kill(); err != nil {
		if isPermissionError(err) {
			return toolerr.New(toolerr.PermissionDenied, "kill_process: permission denied for pid %d", pid)
		}
		return toolerr.New(toolerr.Internal, "kill_process: %v", err)
	}
	return nil
}

func isPermissionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission") || strings.Contains(msg, "operation not permitted") || strings.Contains(msg, "access is denied")
}
