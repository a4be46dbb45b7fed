package tools

import (
	"sort"

	"github.com/cloudwego/eino/components/tool"

	"github.com/babybirdprd/mcp-rg-editor/internal/config"
	"github.com/babybirdprd/mcp-rg-editor/internal/editblock"
	"github.com/babybirdprd/mcp-rg-editor/internal/fsops"
	"github.com/babybirdprd/mcp-rg-editor/internal/procsvc"
	"github.com/babybirdprd/mcp-rg-editor/internal/ripgrep"
	"github.com/babybirdprd/mcp-rg-editor/internal/session"
)

// Deps bundles every component a tool handler may need. All fields are
// required; Registry wires exactly the eighteen tools named in the
// protocol contract against them.
type Deps struct {
	Config    *config.Store
	FS        *fsops.Ops
	Search    *ripgrep.Driver
	Edit      *editblock.Engine
	Sessions  *session.Manager
	Processes *procsvc.Service
}

// Registry is the static name -> (Spec, InvokableTool) routing table.
type Registry struct {
	specs map[string]*Spec
	tools map[string]tool.InvokableTool
}

// NewRegistry builds the full eighteen-tool registry over deps.
func NewRegistry(deps Deps) *Registry {
	r := &Registry{
		specs: make(map[string]*Spec),
		tools: make(map[string]tool.InvokableTool),
	}

	r.register(getConfigSpec(), newGetConfigHandler(deps.Config))
	r.register(setConfigValueSpec(), newSetConfigValueHandler(deps.Config))

	r.register(readFileSpec(), newReadFileHandler(deps.FS))
	r.register(readMultipleFilesSpec(), newReadMultipleFilesHandler(deps.FS))
	r.register(writeFileSpec(), newWriteFileHandler(deps.FS))
	r.register(createDirectorySpec(), newCreateDirectoryHandler(deps.FS))
	r.register(listDirectorySpec(), newListDirectoryHandler(deps.FS))
	r.register(moveFileSpec(), newMoveFileHandler(deps.FS))
	r.register(searchFilesSpec(), newSearchFilesHandler(deps.FS))
	r.register(getFileInfoSpec(), newGetFileInfoHandler(deps.FS))

	r.register(searchCodeSpec(), newSearchCodeHandler(deps.Search))
	r.register(editBlockSpec(), newEditBlockHandler(deps.Edit))

	r.register(executeCommandSpec(), newExecuteCommandHandler(deps.Sessions, deps.Config))
	r.register(readOutputSpec(), newReadOutputHandler(deps.Sessions))
	r.register(forceTerminateSpec(), newForceTerminateHandler(deps.Sessions))
	r.register(listSessionsSpec(), newListSessionsHandler(deps.Sessions))

	r.register(listProcessesSpec(), newListProcessesHandler(deps.Processes))
	r.register(killProcessSpec(), newKillProcessHandler(deps.Processes))

	return r
}

func (r *Registry) register(spec *Spec, handler Handler) {
	r.specs[spec.Name] = spec
	r.tools[spec.Name] = &invokableTool{spec: spec, handler: handler}
}

// Tool returns the named tool, or nil if unknown.
func (r *Registry) Tool(name string) tool.InvokableTool {
	return r.tools[name]
}

// Spec returns the named tool's schema spec, or nil if unknown.
func (r *Registry) Spec(name string) *Spec {
	return r.specs[name]
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Specs returns every registered Spec, sorted by name.
func (r *Registry) Specs() []*Spec {
	names := r.Names()
	out := make([]*Spec, len(names))
	for i, n := range names {
		out[i] = r.specs[n]
	}
	return out
}
