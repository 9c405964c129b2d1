package bridge_test

import (
	"testing"

	"github.com/gputrace/tracevis/engine/bridge"
	"github.com/gputrace/tracevis/engine/internal/backend"
	"github.com/gputrace/tracevis/engine/models"
)

func TestAllocAsyncThenReleaseFreesHandles(t *testing.T) {
	b := backend.New(backend.Options{Workers: 1, QueueCapacity: 4})
	defer b.Close()

	handles, rc := bridge.AllocAsync(b, 8)
	if rc != models.ResultSuccess {
		t.Fatalf("alloc_async: %v", rc)
	}
	if handles.Future == models.InvalidHandle || handles.Array == models.InvalidHandle {
		t.Fatal("expected non-zero future and array handles")
	}
	if _, rc := b.ArrayGet(handles.Array); rc != models.ResultSuccess {
		t.Fatalf("array should be live before release: %v", rc)
	}

	bridge.Release(b, handles)

	if _, rc := b.ArrayGet(handles.Array); rc == models.ResultSuccess {
		t.Fatal("expected array handle to be freed after release")
	}
}

func TestControllerSatisfiesBridgeInterface(t *testing.T) {
	var _ bridge.Controller = backend.New(backend.Options{Workers: 1, QueueCapacity: 1})
}
