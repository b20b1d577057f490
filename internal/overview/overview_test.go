package overview

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractGoHeaders(t *testing.T) {
	src := `package demo

import (
	"fmt"
	"strings"
)

type Greeter struct {
	Name string
}

func (g *Greeter) Greet(loud bool) string {
	if loud {
		return strings.ToUpper(g.Name)
	}
	return fmt.Sprintf("hi %s", g.Name)
}

func helper() {}
`
	r := NewRegistry()
	got, err := r.Extract("demo/greeter.go", []byte(src))
	require.NoError(t, err)
	require.Contains(t, got, `"fmt"`)
	require.Contains(t, got, "type Greeter struct")
	require.Contains(t, got, "func (g *Greeter) Greet(loud bool) string")
	require.Contains(t, got, "func helper()")
	require.NotContains(t, got, "ToUpper")
}

func TestExtractPythonHeaders(t *testing.T) {
	src := `import os
from typing import Optional

class Runner:
    def run(self, retries: int = 3) -> Optional[str]:
        return os.getenv("MODE")

def main():
    Runner().run()
`
	r := NewRegistry()
	got, err := r.Extract("runner.py", []byte(src))
	require.NoError(t, err)
	require.Contains(t, got, "import os")
	require.Contains(t, got, "from typing import Optional")
	require.Contains(t, got, "class Runner:")
	require.Contains(t, got, "def run(self, retries: int = 3) -> Optional[str]:")
	require.Contains(t, got, "def main():")
	require.NotContains(t, got, "getenv")
}

func TestExtractTypeScriptHeaders(t *testing.T) {
	src := `import { App } from "./app";

interface Config {
  port: number;
}

function start(cfg: Config): void {
  const app = new App(cfg.port);
  app.listen();
}
`
	r := NewRegistry()
	got, err := r.Extract("start.ts", []byte(src))
	require.NoError(t, err)
	require.Contains(t, got, `import { App } from "./app";`)
	require.Contains(t, got, "interface Config")
	require.Contains(t, got, "function start(cfg: Config): void")
	require.NotContains(t, got, "app.listen")
}

func TestExtractUnsupportedExtension(t *testing.T) {
	r := NewRegistry()
	_, err := r.Extract("notes.txt", []byte("whatever"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnsupported))
	require.False(t, r.Supported("notes.txt"))
	require.True(t, r.Supported("main.go"))
}
