// Package mcp exposes the automation controller as Model Context Protocol
// tools and resources, over stdio or SSE.
package mcp
