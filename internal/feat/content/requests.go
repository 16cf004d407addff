package content

import (
	"strings"

	"github.com/cliossg/tekir/pkg/cl/formdata"
	"github.com/cliossg/tekir/pkg/cl/validation"
)

// AddSubpageRequest is the form of the new subpage dialog.
type AddSubpageRequest struct {
	Parent string `form:"parent" validate:"required"`
	Model  string `form:"model" validate:"required"`
	Title  string `form:"title" validate:"required"`
	Slug   string `form:"slug"`
}

func NewAddSubpageRequest(parent string, form *formdata.Form) AddSubpageRequest {
	return AddSubpageRequest{
		Parent: parent,
		Model:  form.Value("model"),
		Title:  strings.TrimSpace(form.Value("title")),
		Slug:   strings.TrimSpace(form.Value("slug")),
	}
}

func (r AddSubpageRequest) Validate() validation.ValidationErrors {
	return validation.Struct(r)
}

// NewFlowBlockRequest selects the block to add to a flow field.
type NewFlowBlockRequest struct {
	Path      string `form:"path" validate:"required"`
	FieldName string `form:"field_name" validate:"required"`
	FlowType  string `form:"flow_type" validate:"required"`
}

func (r NewFlowBlockRequest) Validate() validation.ValidationErrors {
	return validation.Struct(r)
}

// DeleteRequest is the selection of a listing form.
type DeleteRequest struct {
	FormID string   `form:"form_id" validate:"required"`
	Items  []string `form:"selected-items"`
}

func NewDeleteRequest(form *formdata.Form) DeleteRequest {
	return DeleteRequest{
		FormID: form.Value("form_id"),
		Items:  form.All("selected-items"),
	}
}

func (r DeleteRequest) Validate() validation.ValidationErrors {
	return validation.Struct(r)
}
