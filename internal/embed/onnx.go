package embed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/daulet/tokenizers"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/localfinderx/localfinderx/internal/xerrors"
)

const (
	// onnxMaxSeqLen caps token length per chunk. 256 halves the O(seqLen²)
	// attention cost against the model's 512-token ceiling and is ample
	// for the ~1000-character chunks this engine produces.
	onnxMaxSeqLen = 256

	// onnxDimensions is the output width of the bundled sentence-embedding
	// model (a BGE-small-en-v1.5-class encoder). It is a build-time
	// constant, not detected from the ONNX graph. Nothing records the
	// model name or dimension alongside the index, so a model swap that
	// changes dimension is not detected by this engine.
	onnxDimensions = 384

	modelFileName = "model.onnx"
	tokenizerFileName = "tokenizer.json"
)

// ONNXEmbedder wraps an in-process ONNX Runtime session and a
// HuggingFace-format tokenizer. Grounded on the ONNX+daulet/tokenizers
// sentence-embedding stack (the only fully local, no-daemon embedding
// path across the retrieved examples); generalized here to accept a
// device hint so the same code path serves CUDA, CoreML (Metal), and
// CPU execution providers.
type ONNXEmbedder struct {
	mu sync.Mutex
	session *ort.DynamicAdvancedSession
	tokenizer *tokenizers.Tokenizer
	device string
	modelName string
	batchSize int
	closed bool
}

// NewONNXEmbedder loads model.onnx and tokenizer.json from modelDir and
// configures ONNX Runtime to use device ("cuda", "metal", or "cpu"),
// falling back to CPU execution if the requested accelerator's provider
// cannot be attached (missing runtime library, no such device at
// session-creation time, etc). ortLibPath points at the platform's
// onnxruntime shared library; an empty string uses the system default
// search path.
func NewONNXEmbedder(modelDir, ortLibPath, device string) (*ONNXEmbedder, error) {
	modelPath := filepath.Join(modelDir, modelFileName)
	tokenPath := filepath.Join(modelDir, tokenizerFileName)

	if _, err := os.Stat(modelPath); err != nil {
		return nil, xerrors.EmbeddingErrorf(fmt.Sprintf("embedding model not found at %s", modelPath), err).
			WithSuggestion("Place model.onnx and tokenizer.json in the configured models directory.")
	}
	if _, err := os.Stat(tokenPath); err != nil {
		return nil, xerrors.EmbeddingErrorf(fmt.Sprintf("tokenizer not found at %s", tokenPath), err)
	}

	if ortLibPath != "" {
		ort.SetSharedLibraryPath(ortLibPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, xerrors.EmbeddingErrorf("failed to initialize onnx runtime", err)
	}

	numThreads := runtime.NumCPU()
	if numThreads > 4 {
		numThreads = 4
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, xerrors.EmbeddingErrorf("failed to create onnx session options", err)
	}
	defer opts.Destroy()
	if err := opts.SetIntraOpNumThreads(numThreads); err != nil {
		return nil, xerrors.EmbeddingErrorf("failed to set intra-op thread count", err)
	}
	if err := opts.SetInterOpNumThreads(1); err != nil {
		return nil, xerrors.EmbeddingErrorf("failed to set inter-op thread count", err)
	}

	attached := attachExecutionProvider(opts, device)

	inputNames := []string{"input_ids", "attention_mask", "token_type_ids"}
	outputNames := []string{"last_hidden_state"}
	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, opts)
	if err != nil {
		return nil, xerrors.EmbeddingErrorf("failed to create onnx session", err)
	}

	tk, err := tokenizers.FromFile(tokenPath)
	if err != nil {
		session.Destroy()
		return nil, xerrors.EmbeddingErrorf("failed to load tokenizer", err)
	}

	return &ONNXEmbedder{
		session: session,
		tokenizer: tk,
		device: attached,
		modelName: filepath.Base(modelDir),
		batchSize: DefaultBatchSize,
	}, nil
}

// attachExecutionProvider tries to append the execution provider for
// device, returning the device that actually ended up active. A
// provider that fails to attach (library missing, device absent) never
// aborts embedder construction — it degrades to CPU, consistent with
// "never abort indexing" for capability-gated features.
func attachExecutionProvider(opts *ort.SessionOptions, device string) string {
	switch device {
	case DeviceCUDA:
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			slog.Warn("cuda_provider_options_failed", slog.String("error", err.Error()))
			return DeviceCPU
		}
		defer cudaOpts.Destroy()
		if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			slog.Warn("cuda_provider_attach_failed", slog.String("error", err.Error()))
			return DeviceCPU
		}
		return DeviceCUDA
	case DeviceMetal:
		if err := opts.AppendExecutionProviderCoreML(0); err != nil {
			slog.Warn("coreml_provider_attach_failed", slog.String("error", err.Error()))
			return DeviceCPU
		}
		return DeviceMetal
	default:
		return DeviceCPU
	}
}

// Device returns the execution provider actually in use, which may be
// CPU even if a faster device was requested (see attachExecutionProvider).
func (e *ONNXEmbedder) Device() string {
	return e.device
}

// Embed embeds a single chunk of text.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in sub-batches of batchSize, running inference
// synchronously (ONNX Runtime sessions are not safe for concurrent Run
// calls, hence the mutex).
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, xerrors.EmbeddingErrorf("embedder is closed", nil)
	}

	results := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		subset := texts[i:end]
		var batch [][]float32
		err := xerrors.Retry(ctx, xerrors.DefaultRetryConfig(), func() error {
			var runErr error
			batch, runErr = e.embedBatch(subset)
			return runErr
		})
		if err != nil {
			return nil, xerrors.EmbeddingErrorf(fmt.Sprintf("embedding batch [%d:%d]", i, end), err)
		}
		results = append(results, batch...)
	}
	return results, nil
}

type onnxEncoded struct {
	ids []int64
	mask []int64
}

func (e *ONNXEmbedder) embedBatch(texts []string) ([][]float32, error) {
	batchSize := len(texts)
	all := make([]onnxEncoded, batchSize)
	maxLen := 0
	for i, text := range texts {
		enc := e.tokenizer.EncodeWithOptions(text, true, tokenizers.WithReturnAttentionMask())
		ids := enc.IDs
		if len(ids) > onnxMaxSeqLen {
			ids = ids[:onnxMaxSeqLen]
		}
		ids64 := make([]int64, len(ids))
		mask64 := make([]int64, len(ids))
		for j, v := range ids {
			ids64[j] = int64(v)
			mask64[j] = 1
		}
		if len(enc.AttentionMask) >= len(ids) {
			for j := range ids64 {
				mask64[j] = int64(enc.AttentionMask[j])
			}
		}
		all[i] = onnxEncoded{ids: ids64, mask: mask64}
		if len(ids64) > maxLen {
			maxLen = len(ids64)
		}
	}
	if maxLen == 0 {
		return nil, fmt.Errorf("all texts tokenized to zero length")
	}

	flatIDs := make([]int64, batchSize*maxLen)
	flatMask := make([]int64, batchSize*maxLen)
	flatType := make([]int64, batchSize*maxLen)
	for i, enc := range all {
		copy(flatIDs[i*maxLen:], enc.ids)
		copy(flatMask[i*maxLen:], enc.mask)
	}
	shape := ort.NewShape(int64(batchSize), int64(maxLen))

	inputIDs, err := ort.NewTensor(shape, flatIDs)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer inputIDs.Destroy()

	attnMask, err := ort.NewTensor(shape, flatMask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer attnMask.Destroy()

	typeIDs, err := ort.NewTensor(shape, flatType)
	if err != nil {
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	defer typeIDs.Destroy()

	inputs := []ort.Value{inputIDs, attnMask, typeIDs}
	outputs := []ort.Value{nil}
	if err := e.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("session run: %w", err)
	}
	defer func() {
		if outputs[0] != nil {
			outputs[0].Destroy()
		}
	}()

	hiddenTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}
	hidden := hiddenTensor.GetData()
	seqLen := int(hiddenTensor.GetShape()[1])

	embeddings := make([][]float32, batchSize)
	for i := 0; i < batchSize; i++ {
		vec := make([]float32, onnxDimensions)
		base := i * seqLen * onnxDimensions
		copy(vec, hidden[base:base+onnxDimensions])
		embeddings[i] = normalizeVector(vec)
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector length.
func (e *ONNXEmbedder) Dimensions() int { return onnxDimensions }

// ModelName returns the model directory's base name as the model identifier.
func (e *ONNXEmbedder) ModelName() string { return e.modelName }

// Available reports whether the session is open.
func (e *ONNXEmbedder) Available(_ context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed
}

// Close destroys the ONNX session and tokenizer.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.session != nil {
		e.session.Destroy()
	}
	if e.tokenizer != nil {
		e.tokenizer.Close()
	}
	return nil
}
