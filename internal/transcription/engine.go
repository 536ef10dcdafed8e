package transcription

import (
	"fmt"

	"theranotes-go/internal/config"
	"theranotes-go/internal/logger"
)

// NewEngine builds the engine selected by cfg.Engine.
func NewEngine(cfg config.WhisperConfig, log *logger.Logger) (Engine, error) {
	switch cfg.Engine {
	case config.EngineServer:
		e, err := NewServerEngine(cfg.ServerURL)
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.EngineNative:
		return NewNativeEngine(cfg.ResolvedModelPath(), log)
	default:
		return nil, fmt.Errorf("unknown whisper engine %q", cfg.Engine)
	}
}
