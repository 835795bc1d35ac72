package engine

// assemble applies the top-level post-processing steps to the merged body:
// root-key wrapping, metadata injection, and the pagination block. Nested
// recursive calls never pass through here.
func assemble(opts Options, input, body any) any {
	meta := buildMeta(opts, input)

	if opts.Root != "" {
		wrapped := map[string]any{opts.Root: body}
		if meta != nil {
			wrapped["meta"] = meta
		}
		return wrapped
	}

	if meta != nil {
		// Without a root key, meta can only ride on a map body.
		if m, ok := body.(map[string]any); ok {
			m["meta"] = meta
		}
	}
	return body
}

func buildMeta(opts Options, input any) map[string]any {
	var meta map[string]any
	if len(opts.Meta) > 0 {
		meta = make(map[string]any, len(opts.Meta)+1)
		for k, v := range opts.Meta {
			meta[k] = v
		}
	}
	if opts.MetaFunc != nil {
		computed := opts.MetaFunc(input)
		if meta == nil {
			meta = make(map[string]any, len(computed)+1)
		}
		for k, v := range computed {
			meta[k] = v
		}
	}
	if p := opts.Pagination; p != nil {
		if meta == nil {
			meta = make(map[string]any, 1)
		}
		meta["pagination"] = map[string]any{
			"page":        p.Page,
			"per_page":    p.PerPage,
			"total":       p.Total,
			"total_pages": totalPages(p.Total, p.PerPage),
		}
	}
	return meta
}

func totalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
