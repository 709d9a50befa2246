package factory

import (
	"strconv"

	"github.com/ruteri/issuance-factory/interfaces"
)

// NextItemID returns the identifier of the next item and a copy of cfg with the
// counter advanced by one. Persisting the copy is the caller's job.
func NextItemID(cfg interfaces.Config) (string, interfaces.Config) {
	id := strconv.FormatUint(uint64(cfg.NextItemID), 10)
	cfg.NextItemID++
	return id, cfg
}
