package adminapi

import (
	"context"
	"fmt"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// SelfTestResult reports a high-level loopback ping, independent of the
// privileged probe daemon's own wire protocol.
type SelfTestResult struct {
	Target     string  `json:"target"`
	Success    bool    `json:"success"`
	LatencyMs  float64 `json:"latency_ms,omitempty"`
	PacketLoss float64 `json:"packet_loss"`
	Error      string  `json:"error,omitempty"`
}

// selfTest pings target using pro-bing, cancellable via ctx. It returns
// an error only when the pinger cannot be created; ping failures and
// cancellation are reported inside the result.
func selfTest(ctx context.Context, target string, timeout time.Duration) (*SelfTestResult, error) {
	pinger, err := probing.NewPinger(target)
	if err != nil {
		return nil, fmt.Errorf("adminapi: create pinger: %w", err)
	}
	pinger.Count = 3
	pinger.Timeout = timeout
	pinger.SetPrivileged(runtime.GOOS == "windows")

	done := make(chan error, 1)
	go func() { done <- pinger.Run() }()

	select {
	case runErr := <-done:
		stats := pinger.Statistics()
		result := &SelfTestResult{Target: target}
		if runErr != nil {
			result.Error = runErr.Error()
			result.PacketLoss = 1.0
			return result, nil
		}
		result.LatencyMs = float64(stats.AvgRtt) / float64(time.Millisecond)
		result.PacketLoss = stats.PacketLoss / 100.0
		result.Success = stats.PacketsRecv > 0
		if !result.Success {
			result.Error = "all packets lost"
		}
		return result, nil
	case <-ctx.Done():
		pinger.Stop()
		return &SelfTestResult{Target: target, Error: "selftest cancelled", PacketLoss: 1.0}, nil
	}
}
