// Package managed is an agent backend that owns its own tool-calling loop.
//
// A Client hosts sessions; each Session keeps its own message history and,
// on SendAndWait, drives the model through as many tool rounds as it needs
// (bounded by MaxTurns) before reporting the final assistant message.
// Progress is published as discriminated Events to handlers registered with
// Session.On.
//
// Usage:
//
//	client := managed.NewClient(managed.ClientOptions{APIKey: key})
//	_ = client.Start(ctx)
//	sess, _ := client.CreateSession(ctx, managed.SessionConfig{Model: "claude-sonnet-4-5"})
//	ev, _ := sess.SendAndWait(ctx, managed.MessageOptions{Prompt: "hi"}, time.Minute)
//	if ev != nil && ev.Type == managed.EventAssistantMessage {
//		fmt.Println(ev.Data.Content)
//	}
package managed
