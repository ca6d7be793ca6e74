package jobs

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Logger adapts zerolog to asynq.Logger.
type Logger struct {
	Z zerolog.Logger
}

func (l Logger) Debug(args ...any) { l.Z.Debug().Msg(fmt.Sprint(args...)) }
func (l Logger) Info(args ...any)  { l.Z.Info().Msg(fmt.Sprint(args...)) }
func (l Logger) Warn(args ...any)  { l.Z.Warn().Msg(fmt.Sprint(args...)) }
func (l Logger) Error(args ...any) { l.Z.Error().Msg(fmt.Sprint(args...)) }
func (l Logger) Fatal(args ...any) { l.Z.Fatal().Msg(fmt.Sprint(args...)) }
