package llm

import (
	"strings"
	"sync"
	"testing"
)

func TestRegistrySingleFlightPerKey(t *testing.T) {
	fake := NewFakeClient(nil)
	fake.Default = "{}"
	reg := NewRegistry(fake, ContextBundle{TreeJSON: "{}", DiffContext: "none"})

	const workers = 8
	sessions := make([]Session, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i] = reg.Session("refinement")
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if sessions[i] != sessions[0] {
			t.Fatal("concurrent callers must share one session per key")
		}
	}
	if reg.Session("main") == sessions[0] {
		t.Fatal("distinct keys must get distinct sessions")
	}
}

func TestRegistrySubfolderKeyCarriesPath(t *testing.T) {
	reg := NewRegistry(NewFakeClient(nil), ContextBundle{TreeJSON: "{}"})
	cfg := reg.configFor("subfolder:internal/server")
	if !strings.Contains(cfg.System, "internal/server") {
		t.Fatal("subfolder system instruction should name the folder")
	}
	if !cfg.JSON {
		t.Fatal("subfolder sessions are JSON sessions")
	}
}

func TestRegistryFixSessionIsTextMode(t *testing.T) {
	reg := NewRegistry(NewFakeClient(nil), ContextBundle{})
	cfg := reg.configFor("fix")
	if cfg.JSON {
		t.Fatal("fix session returns raw text, not JSON")
	}
	if cfg.Temperature != 0.1 {
		t.Fatalf("fix temperature = %v", cfg.Temperature)
	}

	reg.FixStyle = "diff"
	if !strings.Contains(reg.configFor("fix").System, "unified diff") {
		t.Fatal("diff style should ask for unified diff patches")
	}
}

func TestBaseContextIncludesReadmeWhenPresent(t *testing.T) {
	c := ContextBundle{TreeJSON: "{}", DiffContext: "x", Readme: "# Hello"}
	if !strings.Contains(c.BaseContext(), "# Hello") {
		t.Fatal("readme should be embedded")
	}
	c.Readme = ""
	if strings.Contains(c.BaseContext(), "markdown") {
		t.Fatal("no readme section without a readme")
	}
}
