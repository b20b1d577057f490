package llm

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// ContextBundle is the repository context shared by every session: the
// bounded directory tree as JSON, the rendered commit diff, and an optional
// readme excerpt.
type ContextBundle struct {
	TreeJSON    string
	DiffContext string
	Readme      string
}

// BaseContext renders the context block embedded in every system
// instruction. The diffs shown are global repository changes, not local to
// any one subfolder.
func (c ContextBundle) BaseContext() string {
	var b strings.Builder
	b.WriteString("Repository Analysis Context:\n\n")
	b.WriteString("Directory Tree Structure:\n```json\n")
	b.WriteString(c.TreeJSON)
	b.WriteString("\n```\n\n")
	b.WriteString(`In the JSON tree, a node with "truncated": true means "we reached the maximum depth here - there may be files or subfolders below, but we didn't include them."` + "\n\n")
	b.WriteString("Global Commit Changes:\n```text\n")
	b.WriteString(c.DiffContext)
	b.WriteString("\n```\n\n")
	if c.Readme != "" {
		b.WriteString("Repository README (truncated if large):\n```markdown\n")
		b.WriteString(c.Readme)
		b.WriteString("\n```\n\n")
	}
	b.WriteString("You are analyzing change impact across this repository. The diffs shown are global repository changes, not local to any subfolder.\n")
	return b.String()
}

// Registry hands out the per-run chat sessions, one per context key, created
// on first use. Keys: "main", "refinement", "reporting", "fix",
// "subfolder:<path>".
type Registry struct {
	client Client
	bundle ContextBundle
	// FixStyle selects the fix session's system instruction ("full_file"
	// or "diff").
	FixStyle string

	mu       sync.Mutex
	sessions map[string]Session
}

// NewRegistry builds a registry over the given client and shared context.
func NewRegistry(client Client, bundle ContextBundle) *Registry {
	return &Registry{
		client:   client,
		bundle:   bundle,
		FixStyle: "full_file",
		sessions: make(map[string]Session),
	}
}

// Session returns the session for key, creating it on first use. Creation
// is single-flight: concurrent callers for the same key share one session.
func (r *Registry) Session(key string) Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		return s
	}
	log.Printf("[CONTEXT] Creating %s chat", key)
	s := r.client.NewSession(r.configFor(key))
	r.sessions[key] = s
	return s
}

func (r *Registry) configFor(key string) SessionConfig {
	base := r.bundle.BaseContext()
	switch {
	case key == "main":
		return SessionConfig{
			Key:  key,
			JSON: true,
			System: "You are a change-impact analysis agent specializing in detecting BOTH direct and indirect relationships.\n" +
				"Given the directory tree and commit diffs, identify files and folders affected by or related to the changes.\n" +
				"Rules:\n" +
				"1. Any file may appear in 'sure' or 'unsure' if it's changed or downstream impacted.\n" +
				"2. Folders should only be listed if their depth == max_depth.\n" +
				"3. Do not include folders with depth < max_depth.\n" +
				"Output JSON schema:\n" +
				"{\n  sure: string[],\n  unsure: [\n    { path: string, is_dir: boolean, reason: string, needed_info: 'overview'|'raw_content' }\n  ]\n}\n\n" +
				base,
		}
	case key == "refinement":
		return SessionConfig{
			Key:  key,
			JSON: true,
			System: "You are making refinement decisions on change impact analysis.\n" +
				"You have access to the full repository context and global changes.\n" +
				"For each file/folder, determine if it's impacted by the changes with high confidence when possible.\n\n" +
				base,
		}
	case key == "reporting":
		return SessionConfig{
			Key:         key,
			JSON:        true,
			Temperature: 0.1,
			System: "You are a change-impact analysis expert providing detailed diagnostic reports.\n" +
				"Your role is to provide a report in three distinct steps:\n\n" +
				"1. ANALYZE how files are impacted by changes\n" +
				"2. DIAGNOSE whether fixes are needed (not all impacted files need updates)\n" +
				"3. RECOMMEND specific actions (what to do to fix issues) if needed\n\n" +
				"Always provide structured, actionable insights with clear reasoning.\n" +
				"Consider both direct changes and indirect impacts through dependencies.\n" +
				"Be specific about what needs to be done and why.\n\n" +
				base,
		}
	case key == "fix":
		return SessionConfig{
			Key:         key,
			Temperature: 0.1,
			System:      fixSystem(r.FixStyle, base),
		}
	case strings.HasPrefix(key, "subfolder:"):
		folder := strings.TrimPrefix(key, "subfolder:")
		return SessionConfig{
			Key:  key,
			JSON: true,
			System: "You are analyzing a specific subfolder within a repository for change impact.\n" +
				"You have access to the full repository context and global changes.\n" +
				"Focus on identifying files within the given subfolder that are impacted by the global changes.\n\n" +
				base +
				fmt.Sprintf("\nYou will be analyzing the subfolder: %s\n", folder),
		}
	}
	return SessionConfig{Key: key, JSON: true, System: base}
}

func fixSystem(style, base string) string {
	if style == "diff" {
		return "You are a code fix generation expert. Your role is to produce precise unified diff patches that resolve the issues identified by analysis.\n\n" +
			"Key principles:\n" +
			"- Emit a unified diff for a single file using standard `---`/`+++` headers and `@@` hunks\n" +
			"- Include only the minimal hunks required to implement the fix (no unrelated edits)\n" +
			"- Keep context lines around modifications so the patch can be applied cleanly\n" +
			"- Never add explanations, commentary, or extra code fences outside the diff\n" +
			"- Preserve existing style and functionality while addressing the recommendations\n\n" +
			"Repository Context:\n" + base
	}
	return "You are a code fix generation expert. Your role is to generate corrected code based on:\n" +
		"1. The original file content\n" +
		"2. A detailed impact analysis report\n" +
		"3. The commit diff that caused the impact\n\n" +
		"Your task is to produce a complete, corrected version of the file that addresses the issues identified in the impact analysis.\n\n" +
		"Key principles:\n" +
		"- Generate complete, working code (not just snippets or patches)\n" +
		"- Follow the existing code style and patterns\n" +
		"- Address all issues mentioned in the impact analysis recommendations\n" +
		"- Preserve existing functionality while fixing the identified issues\n\n" +
		"Always return the COMPLETE file content with all fixes applied.\n" +
		"Do not include explanations or comments about the changes unless they're part of the actual code.\n\n" +
		"Repository Context:\n" + base
}
