package embed

import (
	"os"
	"os/exec"
	"runtime"
)

// Device names recorded in config.Capabilities.EmbeddingDevice.
const (
	DeviceCUDA = "cuda"
	DeviceMetal = "metal"
	DeviceCPU = "cpu"
)

// DetectDevice probes for a usable accelerator in the order CUDA → Metal
// → CPU, the same shape as the embedder factory's service-selection
// cascade but applied to picking an ONNX Runtime execution provider
// instead of an embedding service. CPU is always available and is the
// final fallback.
func DetectDevice() string {
	if hasCUDA() {
		return DeviceCUDA
	}
	if hasMetal() {
		return DeviceMetal
	}
	return DeviceCPU
}

// hasCUDA checks for an NVIDIA driver the same way a user would from a
// shell: the nvidia-smi tool on PATH, or the driver's proc entry on Linux.
func hasCUDA() bool {
	if _, err := exec.LookPath("nvidia-smi"); err == nil {
		return true
	}
	if _, err := os.Stat("/proc/driver/nvidia"); err == nil {
		return true
	}
	return false
}

// hasMetal reports whether the process is running on Apple Silicon,
// where ONNX Runtime's CoreML execution provider can reach the GPU/ANE.
func hasMetal() bool {
	return runtime.GOOS == "darwin" && runtime.GOARCH == "arm64"
}
