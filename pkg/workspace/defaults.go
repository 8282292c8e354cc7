package workspace

// Builtin bootstrap filenames recognized by the resolver. Any other
// filename has no builtin default and misses once custom and template
// layers miss.
const (
	FileAgentManifest = "AGENT.md"
	FileSoul          = "SOUL.md"
	FileTools         = "TOOLS.md"
	FileIdentity      = "IDENTITY.md"
	FileUserProfile   = "USER.md"
	FileHeartbeat     = "HEARTBEAT.md"
	FileBootstrap     = "BOOTSTRAP.md"
	FileMemory        = "MEMORY.md"
)

// builtinDefaults maps a bootstrap filename to its literal built-in
// content, served when neither the custom nor the template layer has it.
var builtinDefaults = map[string]string{
	FileAgentManifest: `# Agent Manifest

This workspace has no custom agent manifest yet. The agent runs with
default capabilities until AGENT.md is provided.
`,
	FileSoul: `# Soul

No custom persona has been configured for this workspace.
`,
	FileTools: `# Tools

No tool restrictions or extensions are configured. All tools available to
the runtime are enabled by default.
`,
	FileIdentity: `# Identity

No identity overrides configured for this workspace.
`,
	FileUserProfile: `# User Profile

No profile information has been recorded for this user yet.
`,
	FileHeartbeat: `# Heartbeat

No heartbeat notes recorded yet.
`,
	FileBootstrap: `# Bootstrap

This workspace is running with default bootstrap instructions.
`,
	FileMemory: `# Memory

No memory entries recorded yet.
`,
}
