package probefn

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/opsloop/probed/internal/logging"
)

// Default builds the reference probe registry: a handful of commands
// adapted from shell/filesystem/network primitives, returning
// structured values instead of writing to stdout so ForeachMap,
// ForeachSeq and condition bodies can inspect them.
func Default() Registry {
	return MapRegistry{
		"test.ping":        testPing,
		"cmd.run":          cmdRun,
		"file.find":        fileFind,
		"status.diskusage": statusDiskUsage,
		"network.ping":     networkPing,
		"alert.send":       alertSend,
	}
}

// testPing is the canonical liveness probe: no arguments, always
// returns true.
func testPing(args []string) (any, error) {
	return true, nil
}

// cmdRun shells out to "sh -c <command>" and returns combined output,
// trimmed of its trailing newline. Adapted from a shell-command probe
// implementation, minus the direct stdout write.
func cmdRun(args []string) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("cmd.run: expected a command argument")
	}
	out, err := exec.Command("sh", "-c", strings.Join(args, " ")).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("cmd.run: %w: %s", err, string(out))
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// fileFind lists directory entries, adapted from a file-listing probe
// implementation. Returns a Set of file names since directory
// listings are unordered collections.
func fileFind(args []string) (any, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	entries, err := exec.Command("ls", "-1", dir).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("file.find: %w: %s", err, string(entries))
	}
	var out Set
	for _, line := range strings.Split(strings.TrimRight(string(entries), "\n"), "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

// statusDiskUsage reports space usage for a single mounted filesystem
// path. It's grounded on a disk-usage probe implementation, replacing
// its "du -sh" shell-out with a direct Statfs syscall so the result is
// a structured {path: {available, total}} mapping rather than text
// meant for a human, ready for "foreach fs, stats:".
func statusDiskUsage(args []string) (any, error) {
	path := "/"
	if len(args) > 0 {
		path = args[0]
	}
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return nil, fmt.Errorf("status.diskusage %s: %w", path, err)
	}
	total := stat.Blocks * uint64(stat.Bsize)
	available := stat.Bavail * uint64(stat.Bsize)
	return map[string]any{
		path: map[string]any{
			"available": available,
			"total":     total,
		},
	}, nil
}

// networkPing runs count ICMP probes against host, adapted from a ping
// probe implementation, and returns {alive, host, output}: alive is
// true when the ping command exits successfully. args: [host, count,
// interval-seconds], all optional.
func networkPing(args []string) (any, error) {
	host := "localhost"
	count := 4
	interval := "1"
	if len(args) > 0 {
		host = args[0]
	}
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			count = n
		}
	}
	if len(args) > 2 {
		interval = args[2]
	}
	out, err := exec.Command("ping", "-c", strconv.Itoa(count), "-i", interval, host).CombinedOutput()
	alive := err == nil
	return map[string]any{
		"alive":  alive,
		"host":   host,
		"output": string(out),
	}, nil
}

// alertSend logs a message through the daemon's structured logger,
// serving as the default sink a compiled plan can call directly for
// scenarios that don't need the network-bound alert master
// (internal/alert provides that as a separate component).
func alertSend(args []string) (any, error) {
	msg := strings.Join(args, " ")
	logging.Default().Infow("alert.send", "message", msg)
	return msg, nil
}
