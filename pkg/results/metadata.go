package results

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Metadata records the environment a result was produced in, so runs from
// different machines or commits stay distinguishable.
type Metadata struct {
	Timestamp     string `json:"timestamp"`
	System        string `json:"system"`
	CPUModel      string `json:"cpu_model,omitempty"`
	NumCPU        int    `json:"num_cpu"`
	TotalRAMBytes uint64 `json:"total_ram_bytes,omitempty"`
	GoVersion     string `json:"go_version"`
	GitCommit     string `json:"git_commit"`
	ConfigHash    string `json:"config_hash"`
	Repetition    int    `json:"repetition"`
}

// Collect gathers host metadata. Probe failures degrade to empty fields
// rather than failing the benchmark run.
func Collect() Metadata {
	meta := Metadata{
		NumCPU:    runtime.NumCPU(),
		GoVersion: runtime.Version(),
		GitCommit: gitCommit(),
	}

	if info, err := host.Info(); err == nil {
		meta.System = info.Hostname
	}
	meta.Timestamp = time.Now().Format(time.RFC3339)

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		meta.CPUModel = infos[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		meta.TotalRAMBytes = vm.Total
	}

	return meta
}

// ConfigHash identifies an input configuration: the first 8 hex chars of
// sha256 over the canonical inputs JSON plus the git commit. Results with
// the same hash are repetitions of the same experiment.
func ConfigHash(inputs map[string]interface{}, commit string) string {
	hasher := sha256.New()
	hasher.Write(CanonicalJSON(inputs))
	hasher.Write([]byte(commit))
	return hex.EncodeToString(hasher.Sum(nil))[:8]
}

// InputsHash identifies an input set independent of the commit, used by
// storage backends to count existing repetitions.
func InputsHash(inputs map[string]interface{}) string {
	hasher := sha256.New()
	hasher.Write(CanonicalJSON(inputs))
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

// CanonicalJSON marshals a map deterministically. encoding/json sorts map
// keys, which is the property the hashes above rely on.
func CanonicalJSON(m map[string]interface{}) []byte {
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return data
}

func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short=7", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}
