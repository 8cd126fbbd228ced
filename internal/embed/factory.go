package embed

import (
	"context"
	"os"
	"strings"
)

// NewEmbedder builds the embedder used for indexing and search: it
// detects the best available device (DetectDevice), loads the ONNX
// session from modelDir, and wraps it with an LRU query cache unless
// disabled. The caller (cmd/localfinderx's openSession) treats a non-nil
// error as a wholesale model-load failure by design: it hands the
// orchestrator an embedder that reports itself unavailable, so every file
// for this run is downgraded to metadata-only rather than retried, since the
// embedder either loads once at startup or not at all — there is no
// transient network condition to retry against.
//
// ortLibPath points at the onnxruntime shared library for this platform;
// an empty string searches the system default locations. Generalizes the
// teacher's NewEmbedder/ProviderType auto-detection (embed/factory.go's
// MLX → Ollama → static cascade) to this engine's CUDA → Metal → CPU
// device cascade (device.go), replacing "which hosted service to call"
// with "which local execution provider to attach".
func NewEmbedder(ctx context.Context, modelDir, ortLibPath string) (Embedder, string, error) {
	device := DetectDevice()

	embedder, err := NewONNXEmbedder(modelDir, ortLibPath, device)
	if err != nil {
		return nil, "", err
	}

	var result Embedder = embedder
	if !isCacheDisabled() {
		result = NewCachedEmbedderWithDefaults(result)
	}
	return result, embedder.Device(), nil
}

// isCacheDisabled checks whether the query-embedding cache is disabled.
// Set LOCALFINDERX_EMBED_CACHE=false/0/off/disabled to turn it off, e.g.
// when debugging a suspected cache-staleness issue.
func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("LOCALFINDERX_EMBED_CACHE"))
	return v == "false" || v == "0" || v == "off" || v == "disabled"
}
