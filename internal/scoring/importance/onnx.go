package importance

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	inputName  = "token_ids"
	outputName = "importance"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Safe to call multiple
// times; only the first call has any effect.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// resolveRuntimeLib locates the ONNX Runtime shared library. The
// ONNXRUNTIME_LIB environment variable wins; otherwise the library is
// expected next to the model file.
func resolveRuntimeLib(modelPath string) string {
	if lib := os.Getenv("ONNXRUNTIME_LIB"); lib != "" {
		return lib
	}
	return filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
}

// onnxSession wraps a DynamicAdvancedSession for the importance classifier.
// The model takes token_ids int64 [batch, seq] and produces importance
// float32 [batch, 1].
type onnxSession struct {
	session *ort.DynamicAdvancedSession

	// mu serializes Run calls; ORT sessions are not safe for concurrent use
	mu sync.Mutex
}

// newONNXSession loads the classifier graph and validates its tensor names.
func newONNXSession(modelPath string) (*onnxSession, error) {
	if err := initORT(resolveRuntimeLib(modelPath)); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if err := validateTensors(inputs, outputs); err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(2)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputName},
		[]string{outputName},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &onnxSession{session: session}, nil
}

func validateTensors(inputs, outputs []ort.InputOutputInfo) error {
	foundInput := false
	for _, inp := range inputs {
		if inp.Name == inputName {
			foundInput = true
		}
	}
	if !foundInput {
		return fmt.Errorf("onnx: model missing required input %q", inputName)
	}

	foundOutput := false
	for _, out := range outputs {
		if out.Name == outputName {
			foundOutput = true
		}
	}
	if !foundOutput {
		return fmt.Errorf("onnx: model missing required output %q", outputName)
	}
	return nil
}

// infer runs one batch. tokenIDs is a flat [batchSize * seqLen] slice.
// Returns one probability per batch row.
func (s *onnxSession) infer(tokenIDs []int64, batchSize, seqLen int64) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tIDs, err := ort.NewTensor(ort.NewShape(batchSize, seqLen), tokenIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create %s tensor: %w", inputName, err)
	}
	defer tIDs.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(batchSize, 1))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := s.session.Run([]ort.Value{tIDs}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	src := tOut.GetData()
	result := make([]float32, len(src))
	copy(result, src)
	return result, nil
}

// close releases the ONNX session resources.
func (s *onnxSession) close() error {
	return s.session.Destroy()
}
