package executor

import (
	"encoding/base64"
	"encoding/json"

	"github.com/modelship/cadbridge"
	"github.com/modelship/cadbridge/scene"
)

// catalog is the structured command registry. Each entry is a thin
// parameter-mapping wrapper around the scene API.
func catalog() map[string]handler {
	return map[string]handler{
		"execute_code":     handleExecuteCode,
		"get_model_info":   handleGetModelInfo,
		"get_selection":    handleGetSelection,
		"get_screenshot":   handleGetScreenshot,
		"create_document":  handleCreateDocument,
		"create_primitive": handleCreatePrimitive,
		"transform_object": handleTransformObject,
		"delete_object":    handleDeleteObject,
		"extrude_faces":    handleExtrudeFaces,
		"fillet_edges":     handleFilletEdges,
		"chamfer_edges":    handleChamferEdges,
		"boolean_op":       handleBooleanOp,
		"mirror_object":    handleMirrorObject,
		"pattern_object":   handlePatternObject,
		"select_geometry":  handleSelectGeometry,
		"measure":          handleMeasure,
		"list_faces":       handleListFaces,
		"list_edges":       handleListEdges,
		"find_nearest":     handleFindNearest,
		"export_model":     handleExportModel,
		"import_model":     handleImportModel,
	}
}

type codeResult struct {
	Value  any    `json:"value"`
	Stdout string `json:"stdout"`
}

func handleExecuteCode(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Code string `json:"code"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	if p.Code == "" {
		return nil, "", cadbridge.Errorf(cadbridge.KindInvalidArguments, "code must not be empty")
	}
	// Resolve the context up front so a missing document surfaces as
	// NoActiveContext instead of a script error.
	if _, err := ex.document(); err != nil {
		return nil, "", err
	}

	value, stdout, err := ex.code.Run(p.Code)
	if err != nil {
		return nil, stdout, err
	}
	return codeResult{Value: value, Stdout: stdout}, stdout, nil
}

type objectInfo struct {
	Name       string      `json:"name"`
	Label      string      `json:"label"`
	Type       string      `json:"type"`
	Dimensions *dimensions `json:"dimensions,omitempty"`
	Faces      int         `json:"faces"`
	Edges      int         `json:"edges"`
}

type dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Volume float64 `json:"volume"`
	Area   float64 `json:"area"`
}

func handleGetModelInfo(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		ObjectName string `json:"object_name"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}

	objects := make([]objectInfo, 0, len(doc.Objects()))
	for _, o := range doc.Objects() {
		if p.ObjectName != "" && o.Name != p.ObjectName {
			continue
		}
		info := objectInfo{
			Name:  o.Name,
			Label: o.Label,
			Type:  o.Type,
			Faces: len(o.Shape.Faces),
			Edges: len(o.Shape.Edges),
		}
		if o.Shape.Volume > 0 {
			l, w, h := o.Shape.Dimensions()
			info.Dimensions = &dimensions{
				Length: l, Width: w, Height: h,
				Volume: o.Shape.Volume,
				Area:   o.Shape.Area,
			}
		}
		objects = append(objects, info)
	}
	return map[string]any{"document": doc.Name, "objects": objects}, "", nil
}

type subElementInfo struct {
	Name      string     `json:"name"`
	ShapeType string     `json:"shape_type"`
	Center    scene.Vec3 `json:"center"`
	Normal    scene.Vec3 `json:"normal,omitempty"`
	Area      float64    `json:"area,omitempty"`
	Length    float64    `json:"length,omitempty"`
}

func handleGetSelection(ex *Executor, params json.RawMessage) (any, string, error) {
	if err := decode(params, &struct{}{}); err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}

	type selEntry struct {
		Object      string           `json:"object"`
		Type        string           `json:"type"`
		SubElements []subElementInfo `json:"sub_elements,omitempty"`
	}
	entries := make([]selEntry, 0, len(doc.Selection()))
	for _, sel := range doc.Selection() {
		obj, err := doc.Object(sel.Object)
		if err != nil {
			continue // object deleted since selection was made
		}
		entry := selEntry{Object: obj.Name, Type: obj.Type}
		for _, name := range sel.SubElements {
			el, err := obj.SubElement(name)
			if err != nil {
				continue
			}
			switch e := el.(type) {
			case scene.Face:
				entry.SubElements = append(entry.SubElements, subElementInfo{
					Name: name, ShapeType: "Face", Center: e.Centroid, Normal: e.Normal, Area: e.Area,
				})
			case scene.Edge:
				entry.SubElements = append(entry.SubElements, subElementInfo{
					Name: name, ShapeType: "Edge", Center: e.Center, Length: e.Length,
				})
			}
		}
		entries = append(entries, entry)
	}
	return map[string]any{"selection": entries, "count": len(entries)}, "", nil
}

func handleGetScreenshot(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}
	if p.Width == 0 {
		p.Width = 800
	}
	if p.Height == 0 {
		p.Height = 600
	}

	var img []byte
	if ex.cache != nil {
		img = ex.cache.get(doc.Revision, p.Width, p.Height)
	}
	if img == nil {
		img, err = doc.Screenshot(p.Width, p.Height)
		if err != nil {
			return nil, "", err
		}
		if ex.cache != nil {
			ex.cache.put(doc.Revision, p.Width, p.Height, img)
		}
	}

	return map[string]any{
		"image_base64": base64.StdEncoding.EncodeToString(img),
		"width":        p.Width,
		"height":       p.Height,
		"format":       "png",
	}, "", nil
}

func handleCreateDocument(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Name string `json:"name"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	doc := ex.session.Create(p.Name)
	return map[string]any{"document": doc.Name}, "", nil
}

func handleCreatePrimitive(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Kind     string    `json:"kind"`
		Name     string    `json:"name"`
		Position []float64 `json:"position"`
		Length   float64   `json:"length"`
		Width    float64   `json:"width"`
		Height   float64   `json:"height"`
		Radius   float64   `json:"radius"`
		Tube     float64   `json:"tube"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	if p.Kind == "" {
		return nil, "", cadbridge.Errorf(cadbridge.KindInvalidArguments, "kind is required")
	}
	pos, err := toVec3(p.Position)
	if err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}
	obj, err := doc.CreatePrimitive(scene.PrimitiveSpec{
		Kind: p.Kind, Name: p.Name, Position: pos,
		Length: p.Length, Width: p.Width, Height: p.Height,
		Radius: p.Radius, Tube: p.Tube,
	})
	if err != nil {
		return nil, "", cadbridge.Errorf(cadbridge.KindInvalidArguments, "%v", err)
	}
	return map[string]any{"name": obj.Name, "type": obj.Type}, "", nil
}

func handleTransformObject(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Name      string    `json:"name"`
		Translate []float64 `json:"translate"`
		RotateZ   float64   `json:"rotate_z"`
		Scale     float64   `json:"scale"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	translate, err := toVec3(p.Translate)
	if err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}
	if err := doc.Transform(p.Name, translate, p.RotateZ, p.Scale); err != nil {
		return nil, "", err
	}
	return map[string]any{"name": p.Name}, "", nil
}

func handleDeleteObject(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Name string `json:"name"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}
	if err := doc.Delete(p.Name); err != nil {
		return nil, "", err
	}
	return map[string]any{"deleted": p.Name}, "", nil
}

func handleExtrudeFaces(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Name     string  `json:"name"`
		Faces    []int   `json:"faces"`
		Distance float64 `json:"distance"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}
	if err := doc.ExtrudeFaces(p.Name, p.Faces, p.Distance); err != nil {
		return nil, "", err
	}
	return map[string]any{"name": p.Name, "extruded": len(p.Faces)}, "", nil
}

func handleFilletEdges(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Name   string  `json:"name"`
		Edges  []int   `json:"edges"`
		Radius float64 `json:"radius"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}
	if err := doc.FilletEdges(p.Name, p.Edges, p.Radius); err != nil {
		return nil, "", err
	}
	return map[string]any{"name": p.Name, "filleted": len(p.Edges)}, "", nil
}

func handleChamferEdges(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Name     string  `json:"name"`
		Edges    []int   `json:"edges"`
		Distance float64 `json:"distance"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}
	if err := doc.ChamferEdges(p.Name, p.Edges, p.Distance); err != nil {
		return nil, "", err
	}
	return map[string]any{"name": p.Name, "chamfered": len(p.Edges)}, "", nil
}

func handleBooleanOp(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Op         string `json:"op"`
		Target     string `json:"target"`
		Tool       string `json:"tool"`
		ResultName string `json:"result_name"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}
	obj, err := doc.Boolean(p.Op, p.Target, p.Tool, p.ResultName)
	if err != nil {
		return nil, "", err
	}
	return map[string]any{"name": obj.Name, "type": obj.Type, "volume": obj.Shape.Volume}, "", nil
}

func handleMirrorObject(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Name       string `json:"name"`
		Plane      string `json:"plane"`
		ResultName string `json:"result_name"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}
	obj, err := doc.Mirror(p.Name, p.Plane, p.ResultName)
	if err != nil {
		return nil, "", err
	}
	return map[string]any{"name": obj.Name}, "", nil
}

func handlePatternObject(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Name    string    `json:"name"`
		Kind    string    `json:"kind"`
		Count   int       `json:"count"`
		Spacing []float64 `json:"spacing"`
		Angle   float64   `json:"angle"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}

	var created []string
	switch p.Kind {
	case "linear":
		spacing, err := toVec3(p.Spacing)
		if err != nil {
			return nil, "", err
		}
		created, err = doc.PatternLinear(p.Name, p.Count, spacing)
		if err != nil {
			return nil, "", err
		}
	case "polar":
		var err error
		created, err = doc.PatternPolar(p.Name, p.Count, p.Angle)
		if err != nil {
			return nil, "", err
		}
	default:
		return nil, "", cadbridge.Errorf(cadbridge.KindInvalidArguments, "kind must be linear or polar, got %q", p.Kind)
	}
	return map[string]any{"created": created}, "", nil
}

func handleSelectGeometry(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Object      string   `json:"object"`
		SubElements []string `json:"sub_elements"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}
	if p.Object == "" {
		doc.ClearSelection()
		return map[string]any{"count": 0}, "", nil
	}
	if err := doc.SetSelection([]scene.Selection{{Object: p.Object, SubElements: p.SubElements}}); err != nil {
		return nil, "", err
	}
	return map[string]any{"count": 1}, "", nil
}

func handleMeasure(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Kind   string `json:"kind"`
		From   string `json:"from"`
		To     string `json:"to"`
		Object string `json:"object"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}

	switch p.Kind {
	case "distance":
		dist, err := doc.Distance(p.From, p.To)
		if err != nil {
			return nil, "", err
		}
		return map[string]any{"distance": dist}, "", nil
	case "bounding_box":
		if p.Object != "" {
			o, err := doc.Object(p.Object)
			if err != nil {
				return nil, "", err
			}
			return map[string]any{"min": o.Shape.Min, "max": o.Shape.Max}, "", nil
		}
		min, max, ok := doc.BoundingBox()
		if !ok {
			return nil, "", cadbridge.Errorf(cadbridge.KindInvalidArguments, "document is empty")
		}
		return map[string]any{"min": min, "max": max}, "", nil
	case "mass_properties":
		props, err := doc.Measure(p.Object)
		if err != nil {
			return nil, "", err
		}
		return map[string]any{
			"volume":   props.Volume,
			"area":     props.Area,
			"centroid": props.Centroid,
		}, "", nil
	default:
		return nil, "", cadbridge.Errorf(cadbridge.KindInvalidArguments, "unknown measure kind %q", p.Kind)
	}
}

func handleListFaces(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Name string `json:"name"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}
	o, err := doc.Object(p.Name)
	if err != nil {
		return nil, "", err
	}
	type faceInfo struct {
		Index    int        `json:"index"`
		Centroid scene.Vec3 `json:"centroid"`
		Normal   scene.Vec3 `json:"normal"`
		Area     float64    `json:"area"`
	}
	faces := make([]faceInfo, 0, len(o.Shape.Faces))
	for _, f := range o.Shape.Faces {
		faces = append(faces, faceInfo{Index: f.Index, Centroid: f.Centroid, Normal: f.Normal, Area: f.Area})
	}
	return map[string]any{"name": o.Name, "faces": faces}, "", nil
}

func handleListEdges(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Name string `json:"name"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}
	o, err := doc.Object(p.Name)
	if err != nil {
		return nil, "", err
	}
	type edgeInfo struct {
		Index  int        `json:"index"`
		Center scene.Vec3 `json:"center"`
		Length float64    `json:"length"`
	}
	edges := make([]edgeInfo, 0, len(o.Shape.Edges))
	for _, e := range o.Shape.Edges {
		edges = append(edges, edgeInfo{Index: e.Index, Center: e.Center, Length: e.Length})
	}
	return map[string]any{"name": o.Name, "edges": edges}, "", nil
}

func handleFindNearest(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Point []float64 `json:"point"`
		K     int       `json:"k"`
		Scope string    `json:"scope"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	if len(p.Point) != 3 {
		return nil, "", cadbridge.Errorf(cadbridge.KindInvalidArguments, "point must be [x,y,z]")
	}
	point, err := toVec3(p.Point)
	if err != nil {
		return nil, "", err
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}
	hits, err := scene.NearestEntities(doc, point, p.K, scene.Scope(p.Scope))
	if err != nil {
		return nil, "", cadbridge.Errorf(cadbridge.KindInvalidArguments, "%v", err)
	}
	type hitInfo struct {
		Key      string  `json:"key"`
		Distance float64 `json:"distance"`
	}
	out := make([]hitInfo, 0, len(hits))
	for _, h := range hits {
		out = append(out, hitInfo{Key: h.Key, Distance: h.Distance})
	}
	return map[string]any{"hits": out}, "", nil
}

func handleExportModel(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Name   string `json:"name"`
		Path   string `json:"path"`
		Format string `json:"format"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	if p.Path == "" {
		return nil, "", cadbridge.Errorf(cadbridge.KindInvalidArguments, "path is required")
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}
	if err := doc.ExportModel(p.Name, p.Path, p.Format); err != nil {
		return nil, "", err
	}
	return map[string]any{"path": p.Path}, "", nil
}

func handleImportModel(ex *Executor, params json.RawMessage) (any, string, error) {
	var p struct {
		Path string `json:"path"`
		Name string `json:"name"`
	}
	if err := decode(params, &p); err != nil {
		return nil, "", err
	}
	if p.Path == "" {
		return nil, "", cadbridge.Errorf(cadbridge.KindInvalidArguments, "path is required")
	}
	doc, err := ex.document()
	if err != nil {
		return nil, "", err
	}
	obj, err := doc.ImportModel(p.Path, p.Name)
	if err != nil {
		return nil, "", err
	}
	return map[string]any{"name": obj.Name, "type": obj.Type}, "", nil
}
