package tracer

import "qestudio/internal/param"

// HubbardRule forces lda_plus_u_kind = 1 whenever Hubbard U and non-colinear
// magnetism are both on. The clamp is never undone automatically.
type HubbardRule struct {
	base

	ldaPlusU *param.Cell
	noncolin *param.Cell
	kind     *param.Cell
}

// NewHubbard binds a Hubbard rule to the system namelist.
func NewHubbard(system *param.Set, opts ...Option) *HubbardRule {
	return &HubbardRule{
		base:     newBase("hubbard", opts),
		ldaPlusU: system.Cell("lda_plus_u"),
		noncolin: system.Cell("noncolin"),
		kind:     system.Cell("lda_plus_u_kind"),
	}
}

// Activate implements Rule.
func (h *HubbardRule) Activate() {
	subscribeAll(&h.guard, h, h.ldaPlusU, h.noncolin)
	h.OnChange(h.ldaPlusU, h.ldaPlusU.Value())
}

// OnChange implements Rule.
func (h *HubbardRule) OnChange(_ *param.Cell, _ param.Value) {
	release, ok := h.enter()
	if !ok {
		return
	}
	defer release()

	if isTrue(h.ldaPlusU.Value()) && isTrue(h.noncolin.Value()) {
		h.ensure(h.kind, param.Int(1))
	}
}
