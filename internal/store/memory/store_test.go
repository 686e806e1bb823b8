package memory

import (
	"testing"

	"spotanalitics/internal/store"
	"spotanalitics/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}
