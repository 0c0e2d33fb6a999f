package tools

import "encoding/json"

var inputSchemas = map[string]string{
	ToolDescribe: `{
		"type": "object",
		"properties": {}
	}`,
	ToolList: `{
		"type": "object",
		"properties": {
			"level": {"type": "number", "description": "Reserved listing depth."},
			"tag": {"type": "string", "description": "Only packages carrying this tag."},
			"domain": {"type": "string", "description": "Only packages in this domain."},
			"q": {"type": "string", "description": "Case-insensitive match on name or description."}
		}
	}`,
	ToolRunProcess: `{
		"type": "object",
		"properties": {
			"packageId": {"type": "string"},
			"processId": {"type": "string", "description": "Process id or BPMN process id."},
			"input": {"description": "Structured input passed to the process."}
		},
		"required": ["packageId", "processId"]
	}`,
	ToolEvaluateDecision: `{
		"type": "object",
		"properties": {
			"packageId": {"type": "string"},
			"decisionId": {"type": "string", "description": "Decision id or DMN decision id."},
			"input": {"description": "Structured input passed to the decision."}
		},
		"required": ["packageId", "decisionId"]
	}`,
	ToolResolveResources: `{
		"type": "object",
		"properties": {
			"packageId": {"type": "string"},
			"processId": {"type": "string"},
			"taskId": {"type": "string"}
		},
		"required": ["packageId"]
	}`,
	ToolGetArtifact: `{
		"type": "object",
		"properties": {
			"packageId": {"type": "string"},
			"kind": {"type": "string", "enum": ["manifest", "bpmn", "dmn", "cmmn", "docs", "tests"]},
			"id": {"type": "string"}
		},
		"required": ["packageId", "kind"]
	}`,
	ToolValidate: `{
		"type": "object",
		"properties": {
			"packageId": {"type": "string"}
		}
	}`,
}

const objectOutputSchema = `{"type": "object"}`

var outputSchemas = map[string]string{
	ToolDescribe: `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"mode": {"type": "string", "enum": ["package", "workspace"]},
			"securityMode": {"type": "string"},
			"engine": {
				"type": "object",
				"properties": {
					"url": {"type": "string"},
					"mode": {"type": "string"}
				},
				"required": ["url", "mode"]
			},
			"capabilities": {
				"type": "object",
				"properties": {
					"runProcess": {"type": "boolean"},
					"evaluateDecision": {"type": "boolean"},
					"validate": {"type": "boolean"},
					"resolveResources": {"type": "boolean"}
				},
				"required": ["runProcess", "evaluateDecision", "validate", "resolveResources"]
			},
			"tooling": {
				"type": "object",
				"properties": {
					"canonicalTools": {"type": "array", "items": {"type": "string"}},
					"aliases": {"type": "array", "items": {"type": "object", "required": ["name"]}},
					"aliasMap": {"type": "object"}
				},
				"required": ["canonicalTools", "aliases", "aliasMap"]
			}
		},
		"required": ["mode", "engine", "capabilities", "tooling"]
	}`,
	ToolList: `{
		"type": "array",
		"items": {
			"type": "object",
			"properties": {
				"packageId": {"type": "string"},
				"version": {"type": "string"}
			},
			"required": ["packageId"]
		}
	}`,
	ToolRunProcess:       objectOutputSchema,
	ToolEvaluateDecision: objectOutputSchema,
	ToolResolveResources: objectOutputSchema,
	ToolGetArtifact:      objectOutputSchema,
	ToolValidate:         objectOutputSchema,
}

var descriptions = map[string]string{
	ToolDescribe:         "Describe the UAPF MCP server.",
	ToolList:             "List available UAPF packages.",
	ToolRunProcess:       "Execute a UAPF process.",
	ToolEvaluateDecision: "Evaluate a UAPF decision.",
	ToolResolveResources: "Resolve UAPF resources for tasks.",
	ToolGetArtifact:      "Get a UAPF artifact (manifest, BPMN, DMN, CMMN, docs, tests).",
	ToolValidate:         "Validate a UAPF package or workspace.",
}

func rawSchema(s string) json.RawMessage {
	return json.RawMessage(s)
}
