package metrics

import "codeberg.org/mutker/mongeu/internal/errors"

const ErrRegisterFailed = errors.ErrorCode("metrics_register_failed")

func init() {
	errors.Register(map[errors.ErrorCode]string{
		ErrRegisterFailed: "Failed to register metrics",
	})
}
