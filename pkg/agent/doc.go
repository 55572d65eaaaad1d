// Package agent runs tool-augmented conversations against a model backend.
//
// Two backends sit behind the same Provider/Session interfaces:
//
//   - RawChatProvider speaks an OpenAI-compatible chat completions API and
//     drives tool calling itself, at most one tool call per user message.
//   - ManagedAgentProvider delegates to a backend that runs its own tool loop
//     and only reports the final assistant message.
//
// Invariants:
//   - A session's history only grows; a failed round leaves it unchanged.
//   - Transport failures become "Error: ..." response content, never Go errors.
//   - Tool argument validation failures are returned as *toolexecutor.ValidationError.
//   - Sessions are single-flight: a concurrent SendMessage fails with ErrSessionBusy.
//
// Usage:
//
//	provider, _ := (&agent.ProviderFactory{}).NewProvider(agent.ProviderProfile{Kind: "deepseek", APIKey: key})
//	_ = provider.Initialize(ctx)
//	sess, _ := provider.CreateSession(ctx, agent.SessionOptions{SystemPrompt: prompt, Tools: tools})
//	resp, _ := sess.SendMessage(ctx, "create demo_app")
//	fmt.Println(resp.Content)
package agent
