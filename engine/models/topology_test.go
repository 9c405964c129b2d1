package models

import "testing"

func TestInclusiveMemoryUsageSumsSelfAndChildren(t *testing.T) {
	leafOnly := &Node{ID: 1}
	leafOnly.Processors = append(leafOnly.Processors, &Processor{ID: 1})
	if got := leafOnly.InclusiveMemoryUsage(); got != selfSizeNode+selfSizeProcessor {
		t.Fatalf("expected self+processor, got %d", got)
	}
}

func TestInclusiveMemoryUsageRecursesThroughProcess(t *testing.T) {
	proc := &Process{
		ID:                  1,
		InstrumentedThreads: []*InstrumentedThread{{ID: 1}, {ID: 2}},
		Queues:              []*Queue{{ID: 1}},
	}
	node := &Node{ID: 1, Processes: []*Process{proc}}

	want := uint64(selfSizeNode) + uint64(selfSizeProcess) + 2*selfSizeThread + selfSizeQueue
	if got := node.InclusiveMemoryUsage(); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestInclusiveMemoryUsageIncludesInfoTableRows(t *testing.T) {
	withInfo := &Node{ID: 1, InfoTable: []InfoRow{{Label: "a", Value: "1"}, {Label: "b", Value: "2"}}}
	without := &Node{ID: 2}

	if withInfo.InclusiveMemoryUsage()-without.InclusiveMemoryUsage() != 2*selfSizeInfoRow {
		t.Fatal("expected info table rows to add to the inclusive total")
	}
}

func TestTopologyInclusiveMemoryUsageSumsAllNodes(t *testing.T) {
	topo := NewTopology()
	topo.AddNode(&Node{ID: 1})
	topo.AddNode(&Node{ID: 2, Processors: []*Processor{{ID: 1}}})

	want := 2*uint64(selfSizeNode) + selfSizeProcessor
	if got := topo.InclusiveMemoryUsage(); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}
