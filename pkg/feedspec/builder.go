package feedspec

// Builder accumulates a feed definition option by option. Assigning the
// same option twice within one definition block is rejected rather than
// resolved last-wins, so a conflicting definition fails loudly instead
// of silently keeping one of the values.
type Builder struct {
	cfg FeedConfig
	set map[string]bool
	err error
}

func (b *Builder) assign(option string, fn func()) *Builder {
	if b.err != nil {
		return b
	}
	if b.set[option] {
		b.err = configError("option %q assigned twice in one feed definition", option)
		return b
	}
	b.set[option] = true
	fn()
	return b
}

// Provider sets the pre-built backing provider.
func (b *Builder) Provider(p Provider) *Builder {
	return b.assign("provider", func() { b.cfg.Provider = p })
}

// Factory sets the provider factory.
func (b *Builder) Factory(f ProviderFactory) *Builder {
	return b.assign("factory", func() { b.cfg.Factory = f })
}

// PerPage sets the default page size.
func (b *Builder) PerPage(n int) *Builder {
	return b.assign("per_page", func() { b.cfg.PerPage = n })
}

// BatchSize sets the dispatch group bound.
func (b *Builder) BatchSize(n int) *Builder {
	return b.assign("batch_size", func() { b.cfg.BatchSize = n })
}

// Namespace sets the keyspace prefix.
func (b *Builder) Namespace(ns string) *Builder {
	return b.assign("namespace", func() { b.cfg.Namespace = ns })
}

// MaxSize sets the per-user event cap.
func (b *Builder) MaxSize(n int) *Builder {
	return b.assign("max_size", func() { b.cfg.MaxSize = n })
}

// DefineWith registers a feed from a definition block.
func (r *Registry) DefineWith(name string, block func(*Builder)) (*Feed, error) {
	b := &Builder{set: make(map[string]bool)}
	block(b)
	if b.err != nil {
		return nil, b.err
	}
	return r.Define(name, b.cfg)
}

// DefineWith registers a feed in the default registry from a
// definition block.
func DefineWith(name string, block func(*Builder)) (*Feed, error) {
	return defaultRegistry.DefineWith(name, block)
}
