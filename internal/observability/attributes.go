// Package observability provides metrics and attribute helpers.
package observability

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys
const (
	attrMethod   = "method"
	attrPath     = "path"
	attrStatus   = "status"
	attrTool     = "tool"
	attrOp       = "op"
	attrSuccess  = "success"
	attrResource = "resource_type"
)

func methodAttr(method string) attribute.KeyValue {
	return attribute.String(attrMethod, method)
}

func pathAttr(path string) attribute.KeyValue {
	return attribute.String(attrPath, normalizePath(path))
}

func statusAttr(code int) attribute.KeyValue {
	// Group status codes to reduce cardinality
	// 200-299 -> 2xx, 400-499 -> 4xx, 500-599 -> 5xx
	group := fmt.Sprintf("%dxx", code/100)
	return attribute.String(attrStatus, group)
}

func toolAttr(tool string) attribute.KeyValue {
	return attribute.String(attrTool, tool)
}

func opAttr(op string) attribute.KeyValue {
	return attribute.String(attrOp, op)
}

func successAttr(success bool) attribute.KeyValue {
	return attribute.Bool(attrSuccess, success)
}

func resourceAttr(resourceType string) attribute.KeyValue {
	return attribute.String(attrResource, resourceType)
}

// normalizePath replaces the dynamic tool-name segment with a placeholder
// so metric cardinality stays bounded by the tool attribute instead.
func normalizePath(path string) string {
	const prefix = "/v1/tools/"
	if strings.HasPrefix(path, prefix) && len(path) > len(prefix) {
		return "/v1/tools/{tool}"
	}
	return path
}
