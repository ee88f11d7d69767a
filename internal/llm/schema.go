package llm

// Helpers for building JSON Schema objects.

func Prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func Enum(desc string, values ...string) map[string]any {
	p := Prop("string", desc)
	p["enum"] = values
	return p
}

func Obj(properties map[string]any) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

func ObjReq(properties map[string]any, required ...string) map[string]any {
	s := Obj(properties)
	s["required"] = required
	return s
}
