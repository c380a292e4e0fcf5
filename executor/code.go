package executor

import (
	"bytes"
	"errors"
	"strings"

	"github.com/dop251/goja"

	"github.com/modelship/cadbridge"
	"github.com/modelship/cadbridge/scene"
)

// CodeSession executes free-form JavaScript against a persistent namespace.
// Globals survive across calls within one session, so a variable defined by
// one command is visible to the next. The VM is only ever entered from the
// UI thread; it needs no lock.
type CodeSession struct {
	vm      *goja.Runtime
	session *scene.Session
	out     bytes.Buffer
}

// NewCodeSession creates a session VM with print capture and the host API
// bound under the global "cad" object.
func NewCodeSession(s *scene.Session) *CodeSession {
	cs := &CodeSession{vm: goja.New(), session: s}

	cs.vm.Set("print", cs.print)
	console := cs.vm.NewObject()
	console.Set("log", cs.print)
	cs.vm.Set("console", console)

	cs.bindHostAPI()
	return cs
}

// Run executes source in the session namespace. Printed output is captured
// and returned regardless of success. Script errors are classified as
// ExecutionError; they never propagate as Go panics.
func (cs *CodeSession) Run(src string) (value any, stdout string, err error) {
	cs.out.Reset()
	v, runErr := cs.vm.RunString(src)
	stdout = cs.out.String()

	if runErr != nil {
		var interrupted *goja.InterruptedError
		if errors.As(runErr, &interrupted) {
			return nil, stdout, cadbridge.Errorf(cadbridge.KindShutdownError, "execution interrupted: %v", interrupted.Value())
		}
		var exc *goja.Exception
		if errors.As(runErr, &exc) {
			return nil, stdout, cadbridge.Errorf(cadbridge.KindExecutionError, "%s", exc.Error())
		}
		return nil, stdout, cadbridge.Errorf(cadbridge.KindExecutionError, "%v", runErr)
	}

	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, stdout, nil
	}
	return v.Export(), stdout, nil
}

// Interrupt aborts any script currently running in the VM. Called on bridge
// shutdown so a spinning script cannot pin the UI thread forever.
func (cs *CodeSession) Interrupt() {
	cs.vm.Interrupt("bridge shutting down")
}

func (cs *CodeSession) print(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, a := range call.Arguments {
		parts[i] = a.String()
	}
	cs.out.WriteString(strings.Join(parts, " "))
	cs.out.WriteByte('\n')
	return goja.Undefined()
}

// bindHostAPI exposes a capability-limited view of the document to scripts.
// Errors returned by these functions are thrown as script exceptions.
func (cs *CodeSession) bindHostAPI() {
	cad := cs.vm.NewObject()

	cad.Set("documentName", func() (string, error) {
		doc, err := cs.session.Document()
		if err != nil {
			return "", err
		}
		return doc.Name, nil
	})

	cad.Set("objects", func() ([]string, error) {
		doc, err := cs.session.Document()
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(doc.Objects()))
		for _, o := range doc.Objects() {
			names = append(names, o.Name)
		}
		return names, nil
	})

	cad.Set("createBox", func(name string, l, w, h float64) (string, error) {
		doc, err := cs.session.Document()
		if err != nil {
			return "", err
		}
		o, err := doc.CreatePrimitive(scene.PrimitiveSpec{Kind: "box", Name: name, Length: l, Width: w, Height: h})
		if err != nil {
			return "", err
		}
		return o.Name, nil
	})

	cad.Set("createCylinder", func(name string, r, h float64) (string, error) {
		doc, err := cs.session.Document()
		if err != nil {
			return "", err
		}
		o, err := doc.CreatePrimitive(scene.PrimitiveSpec{Kind: "cylinder", Name: name, Radius: r, Height: h})
		if err != nil {
			return "", err
		}
		return o.Name, nil
	})

	cad.Set("createSphere", func(name string, r float64) (string, error) {
		doc, err := cs.session.Document()
		if err != nil {
			return "", err
		}
		o, err := doc.CreatePrimitive(scene.PrimitiveSpec{Kind: "sphere", Name: name, Radius: r})
		if err != nil {
			return "", err
		}
		return o.Name, nil
	})

	cad.Set("remove", func(name string) error {
		doc, err := cs.session.Document()
		if err != nil {
			return err
		}
		return doc.Delete(name)
	})

	cad.Set("boundingBox", func(name string) (map[string]any, error) {
		doc, err := cs.session.Document()
		if err != nil {
			return nil, err
		}
		o, err := doc.Object(name)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"min": []float64{o.Shape.Min[0], o.Shape.Min[1], o.Shape.Min[2]},
			"max": []float64{o.Shape.Max[0], o.Shape.Max[1], o.Shape.Max[2]},
		}, nil
	})

	cad.Set("volume", func(name string) (float64, error) {
		doc, err := cs.session.Document()
		if err != nil {
			return 0, err
		}
		o, err := doc.Object(name)
		if err != nil {
			return 0, err
		}
		return o.Shape.Volume, nil
	})

	cs.vm.Set("cad", cad)
}
