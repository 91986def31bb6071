//go:build !cgo

package native

import (
	"blurrer/converter"
	"go.uber.org/zap"
)

// webp output needs cgo; without it the format is reported as unsupported.
func registerWebp(map[converter.Format]Encoder, *zap.Logger, int) {}
