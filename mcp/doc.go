// Package mcp exposes handle resolution, routing document validation and the
// gasless relay as Model Context Protocol tools.
//
// # Server Usage
//
//	server := mcp.NewServer(router, mcp.WithValidator(pipeline), mcp.WithRelayer(relay))
//	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil { ... }
//
// # Client Usage
//
// Wrap a connected session of the official SDK:
//
//	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "wallet", Version: "1.0.0"}, nil)
//	session, _ := mcpClient.Connect(ctx, transport, nil)
//
//	tools := mcp.NewClient(session)
//	address, err := tools.Resolve(ctx, "@alice", paylink.ResolveOptions{Chain: "evm:1"})
//
// Business errors cross the transport with their code, so paylink.IsCode
// works on errors returned by the client.
package mcp
