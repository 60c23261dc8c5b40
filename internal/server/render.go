package server

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/wizard"
)

type (
	// stepContext is the template context for one rendered step, mirroring
	// the JSON StepResponse
	stepContext struct {
		Extra  map[string]any
		Wizard string
		Action string
		Step   api.Name
		First  api.Name
		Last   api.Name
		Prev   api.Name
		Next   api.Name
		Fields []fieldContext
		Index  int
		Index1 int
		Count  int
	}

	fieldContext struct {
		Spec  *api.FieldSpec
		Name  string
		Label string
		Value string
		Error string
	}
)

//go:embed templates/*.html
var templatesFS embed.FS

const stepTemplate = "wizard.html"

func stepTemplates() *template.Template {
	return template.Must(template.ParseFS(templatesFS, "templates/*.html"))
}

// renderStep answers with the step as HTML, or as a StepResponse when the
// client asks for JSON
func (s *Server) renderStep(
	c *gin.Context, w *wizard.Wizard, sess *wizard.Session,
	step api.Name, fieldErrs api.FieldErrors,
) {
	seq, err := sess.Sequence()
	if err != nil {
		s.internalError(c, err)
		return
	}
	decl, err := w.StepByName(step)
	if err != nil {
		s.internalError(c, err)
		return
	}

	data := sess.State().StepData(step)
	if data == nil {
		data = decl.InitialData()
	}

	status := http.StatusOK
	if len(fieldErrs) > 0 {
		status = http.StatusUnprocessableEntity
	}

	if wantsJSON(c) {
		c.JSON(status, api.StepResponse{
			Wizard: w.Name,
			Step:   step,
			First:  seq.First(),
			Last:   seq.Last(),
			Prev:   seq.Prev(step),
			Next:   seq.Next(step),
			Index:  seq.Index(step),
			Index1: seq.Index(step) + 1,
			Count:  seq.Count(),
			Data:   data,
			Errors: fieldErrs,
			Extra:  sess.Extra(),
		})
		return
	}

	c.HTML(status, stepTemplate, &stepContext{
		Wizard: w.Name,
		Action: "/wizard/" + w.Name + "/" + string(step),
		Step:   step,
		First:  seq.First(),
		Last:   seq.Last(),
		Prev:   seq.Prev(step),
		Next:   seq.Next(step),
		Index:  seq.Index(step),
		Index1: seq.Index(step) + 1,
		Count:  seq.Count(),
		Fields: fieldContexts(decl.Schema, data, fieldErrs),
		Extra:  sess.Extra(),
	})
}

func fieldContexts(
	schema *api.Schema, data api.RawValues, fieldErrs api.FieldErrors,
) []fieldContext {
	var fields []fieldContext
	for _, name := range schema.FieldNames() {
		spec := schema.Fields[name]
		label := spec.Label
		if label == "" {
			label = name
		}
		fields = append(fields, fieldContext{
			Spec:  spec,
			Name:  name,
			Label: label,
			Value: data.Get(name),
			Error: fieldErrs[name],
		})
	}
	return fields
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
