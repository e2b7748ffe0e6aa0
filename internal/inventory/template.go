package inventory

import (
	"context"

	"github.com/inventa-labs/inventa/backend/internal/customid"
	"github.com/inventa-labs/inventa/backend/internal/users"
)

const opAttachTemplate = "inventory.template.attach"

// AttachTemplate stores or replaces the custom-id template for an inventory.
// The per-inventory counter keeps its position across replacements.
func (s *Service) AttachTemplate(ctx context.Context, actor *users.Actor, inventoryID string, tpl customid.Template) (err error) {
	defer s.observe(opAttachTemplate, &err)

	if err := s.AuthorizeWrite(ctx, actor, inventoryID); err != nil {
		return err
	}
	return s.sequences.AttachTemplate(ctx, inventoryID, tpl)
}

// GetTemplate returns the inventory's attached template, if any.
func (s *Service) GetTemplate(ctx context.Context, actor *users.Actor, inventoryID string) (customid.Template, bool, error) {
	if err := s.AuthorizeRead(ctx, actor, inventoryID); err != nil {
		return customid.Template{}, false, err
	}
	return s.sequences.TemplateFor(ctx, inventoryID)
}

// PreviewCustomID renders a representative sample of a template for UI
// preview without consuming a sequence slot.
func (s *Service) PreviewCustomID(tpl customid.Template) (string, error) {
	if err := tpl.Validate(); err != nil {
		return "", err
	}
	return s.engine.SampleRender(tpl)
}
