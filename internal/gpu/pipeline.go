package gpu

type BlendState uint8

const (
	// BlendReplace writes the source color ignoring its alpha.
	BlendReplace BlendState = iota
	// BlendAlpha is standard source-over blending.
	BlendAlpha
)

type PipelineDescriptor struct {
	Label string
	Blend BlendState
}

type RenderPipeline struct {
	label string
	blend BlendState
}

func (p *RenderPipeline) Label() string     { return p.label }
func (p *RenderPipeline) Blend() BlendState { return p.blend }
