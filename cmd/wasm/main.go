//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"syscall/js"

	"github.com/pdfgrader/grader/internal/bidi"
	"github.com/pdfgrader/grader/internal/config"
	"github.com/pdfgrader/grader/internal/document"
	"github.com/pdfgrader/grader/internal/engine"
	"github.com/pdfgrader/grader/internal/export"
)

var eng *engine.Engine

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	opts := engine.DefaultOptions()
	if cfg, err := config.Load(); err != nil {
		slog.Warn("load config", "error", err)
	} else {
		opts = cfg.EngineOptions()
	}
	eng = engine.NewEngine(opts)
	eng.SetSaveHook(func() { callGlobal("onAutosave") })
	eng.SetRefreshHook(func(page int) { callGlobal("onRefreshPage", page) })

	// Create the engine API object
	grader := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	grader.Set("addDocument", js.FuncOf(addDocument))
	grader.Set("beginLoad", js.FuncOf(beginLoad))
	grader.Set("completeLoad", js.FuncOf(completeLoad))
	grader.Set("failLoad", js.FuncOf(failLoad))
	grader.Set("setPage", js.FuncOf(setPage))
	grader.Set("setPageSize", js.FuncOf(setPageSize))
	grader.Set("setZoom", js.FuncOf(setZoom))
	grader.Set("zoomIn", js.FuncOf(zoomIn))
	grader.Set("zoomOut", js.FuncOf(zoomOut))
	grader.Set("setTool", js.FuncOf(setTool))
	grader.Set("setPenColor", js.FuncOf(setPenColor))
	grader.Set("setPenWidth", js.FuncOf(setPenWidth))
	grader.Set("setTextSize", js.FuncOf(setTextSize))
	grader.Set("pointerDown", js.FuncOf(pointerDown))
	grader.Set("pointerMove", js.FuncOf(pointerMove))
	grader.Set("pointerUp", js.FuncOf(pointerUp))
	grader.Set("cancelGesture", js.FuncOf(cancelGesture))
	grader.Set("commitText", js.FuncOf(commitText))
	grader.Set("updateText", js.FuncOf(updateText))
	grader.Set("deleteAnnotation", js.FuncOf(deleteAnnotation))
	grader.Set("undo", js.FuncOf(undo))
	grader.Set("redo", js.FuncOf(redo))
	grader.Set("setRubric", js.FuncOf(setRubric))
	grader.Set("setScore", js.FuncOf(setScore))
	grader.Set("clearScore", js.FuncOf(clearScore))
	grader.Set("addToBank", js.FuncOf(addToBank))
	grader.Set("removeFromBank", js.FuncOf(removeFromBank))
	grader.Set("useBankEntry", js.FuncOf(useBankEntry))
	grader.Set("applySession", js.FuncOf(applySession))
	grader.Set("mergeSession", js.FuncOf(mergeSession))
	grader.Set("loadSampleSession", js.FuncOf(loadSampleSession))
	grader.Set("exportPdf", js.FuncOf(exportPdf))

	// --- Queries (frontend ← backend) ---
	grader.Set("render", js.FuncOf(render))
	grader.Set("hitTest", js.FuncOf(hitTest))
	grader.Set("getAnnotations", js.FuncOf(getAnnotations))
	grader.Set("getSession", js.FuncOf(getSession))
	grader.Set("getDocuments", js.FuncOf(getDocuments))
	grader.Set("getPendingRestore", js.FuncOf(getPendingRestore))
	grader.Set("getRubric", js.FuncOf(getRubric))
	grader.Set("getScores", js.FuncOf(getScores))
	grader.Set("getBank", js.FuncOf(getBank))
	grader.Set("getState", js.FuncOf(getState))
	grader.Set("rubricDiffers", js.FuncOf(rubricDiffers))
	grader.Set("shapeText", js.FuncOf(shapeText))

	// Register on global scope
	js.Global().Set("graderEngine", grader)

	// Signal that WASM is ready
	js.Global().Set("graderWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// --- Helpers ---

func callGlobal(name string, args ...any) {
	fn := js.Global().Get(name)
	if fn.Type() == js.TypeFunction {
		fn.Invoke(args...)
	}
}

func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal result", "error", err)
		return "null"
	}
	return string(data)
}

func errResult(err error) js.Value {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func okResult() js.Value {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

var errMissingArgs = errors.New("missing arguments")

func pageArg(args []js.Value) int {
	if len(args) < 1 || args[0].Type() != js.TypeNumber {
		return eng.Page()
	}
	return args[0].Int()
}

func optString(args []js.Value, i int) string {
	if len(args) <= i || args[i].Type() != js.TypeString {
		return ""
	}
	return args[i].String()
}

func optFloat(args []js.Value, i int) float64 {
	if len(args) <= i || args[i].Type() != js.TypeNumber {
		return 0
	}
	return args[i].Float()
}

// pointerEvent reads (page, button, viewX, viewY, screenX, screenY).
func pointerEvent(args []js.Value) (int, engine.PointerEvent, bool) {
	if len(args) < 4 {
		return 0, engine.PointerEvent{}, false
	}
	ev := engine.PointerEvent{
		Button: engine.Button(args[1].Int()),
		View:   document.Point{X: args[2].Float(), Y: args[3].Float()},
	}
	ev.Screen = document.Point{X: optFloat(args, 4), Y: optFloat(args, 5)}
	return args[0].Int(), ev, true
}

func decodeSession(s string) (document.Session, error) {
	var sess document.Session
	if err := json.Unmarshal([]byte(s), &sess); err != nil {
		return document.Session{}, err
	}
	return sess, nil
}

// --- Command Handlers ---

func addDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errResult(errMissingArgs)
	}
	return js.ValueOf(toJSON(eng.AddDocument(args[0].String())))
}

func beginLoad(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errResult(errMissingArgs)
	}
	seq, err := eng.BeginLoad(args[0].String())
	if err != nil {
		return errResult(err)
	}
	// Request ids stay far below 2^53, so a JS number holds them exactly.
	return js.ValueOf(map[string]interface{}{"seq": float64(seq)})
}

func completeLoad(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	var sizes []engine.PageSize
	if err := json.Unmarshal([]byte(args[1].String()), &sizes); err != nil {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.CompleteLoad(uint64(args[0].Float()), sizes))
}

func failLoad(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.FailLoad(uint64(args[0].Float()), errors.New(optString(args, 1))))
}

func setPage(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.SetPage(pageArg(args)))
}

func setPageSize(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.SetPageSize(args[0].Int(), engine.PageSize{Width: args[1].Float(), Height: args[2].Float()}))
}

func setZoom(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errResult(errMissingArgs)
	}
	if err := eng.SetZoom(args[0].Float()); err != nil {
		return errResult(err)
	}
	return okResult()
}

func zoomIn(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.ZoomIn())
}

func zoomOut(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.ZoomOut())
}

func setTool(this js.Value, args []js.Value) interface{} {
	tool, ok := engine.ParseTool(optString(args, 0))
	if !ok {
		return js.ValueOf(false)
	}
	eng.SetTool(tool)
	return js.ValueOf(true)
}

func setPenColor(this js.Value, args []js.Value) interface{} {
	eng.SetPenColor(optString(args, 0))
	return nil
}

func setPenWidth(this js.Value, args []js.Value) interface{} {
	eng.SetPenWidth(optFloat(args, 0))
	return nil
}

func setTextSize(this js.Value, args []js.Value) interface{} {
	eng.SetTextSize(optFloat(args, 0))
	return nil
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	page, ev, ok := pointerEvent(args)
	if !ok {
		return js.ValueOf(toJSON(engine.Outcome{}))
	}
	return js.ValueOf(toJSON(eng.PointerDown(page, ev)))
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	page, ev, ok := pointerEvent(args)
	if !ok {
		return js.ValueOf(toJSON(engine.Outcome{}))
	}
	return js.ValueOf(toJSON(eng.PointerMove(page, ev)))
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	page, ev, ok := pointerEvent(args)
	if !ok {
		return js.ValueOf(toJSON(engine.Outcome{}))
	}
	return js.ValueOf(toJSON(eng.PointerUp(page, ev)))
}

func cancelGesture(this js.Value, args []js.Value) interface{} {
	eng.CancelGesture()
	return nil
}

// commitText(page, anchorX, anchorY, text, size, color)
func commitText(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return js.ValueOf("")
	}
	anchor := document.Point{X: args[1].Float(), Y: args[2].Float()}
	edit := engine.TextEdit{Text: args[3].String(), Size: optFloat(args, 4), Color: optString(args, 5)}
	ann, ok := eng.CommitText(args[0].Int(), anchor, edit)
	if !ok {
		return js.ValueOf("")
	}
	return js.ValueOf(toJSON(ann))
}

// updateText(page, id, text, size, color)
func updateText(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf(false)
	}
	edit := engine.TextEdit{Text: args[2].String(), Size: optFloat(args, 3), Color: optString(args, 4)}
	return js.ValueOf(eng.UpdateText(args[0].Int(), args[1].String(), edit))
}

func deleteAnnotation(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.DeleteAnnotation(args[0].Int(), args[1].String()))
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Undo(pageArg(args)))
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Redo(pageArg(args)))
}

func setRubric(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errResult(errMissingArgs)
	}
	var r document.Rubric
	if err := json.Unmarshal([]byte(args[0].String()), &r); err != nil {
		return errResult(err)
	}
	eng.SetRubric(r)
	return okResult()
}

func setScore(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errResult(errMissingArgs)
	}
	if err := eng.SetScore(args[0].Int(), args[1].Float()); err != nil {
		return errResult(err)
	}
	return okResult()
}

func clearScore(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.ClearScore(args[0].Int())
	return nil
}

func addToBank(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.AddToBank(optString(args, 0)))
}

func removeFromBank(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.RemoveFromBank(args[0].Int()))
}

func useBankEntry(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.UseBankEntry(args[0].Int()))
}

func applySession(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errResult(errMissingArgs)
	}
	sess, err := decodeSession(args[0].String())
	if err != nil {
		return errResult(err)
	}
	return js.ValueOf(toJSON(eng.ApplySession(sess)))
}

// mergeSession(json, replaceRubric, mergeBank)
func mergeSession(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errResult(errMissingArgs)
	}
	sess, err := decodeSession(args[0].String())
	if err != nil {
		return errResult(err)
	}
	opts := engine.MergeOptions{
		ReplaceRubric: len(args) > 1 && args[1].Truthy(),
		MergeBank:     len(args) > 2 && args[2].Truthy(),
	}
	return js.ValueOf(toJSON(eng.MergeSession(sess, opts)))
}

func loadSampleSession(this js.Value, args []js.Value) interface{} {
	name := optString(args, 0)
	if name == "" {
		name = "sample.pdf"
	}
	return js.ValueOf(toJSON(eng.ApplySession(*document.NewSampleSession(name))))
}

// exportPdf(hebrewFont Uint8Array, latinFont Uint8Array|null, summaryX, summaryY)
// returns the recorded page ops as JSON for the page writer.
func exportPdf(this js.Value, args []js.Value) interface{} {
	var fonts export.SFNTFonts
	if len(args) > 0 && args[0].Truthy() {
		fonts.Hebrew = make([]byte, args[0].Length())
		js.CopyBytesToGo(fonts.Hebrew, args[0])
	}
	if len(args) > 1 && args[1].Truthy() {
		fonts.Latin = make([]byte, args[1].Length())
		js.CopyBytesToGo(fonts.Latin, args[1])
	}

	req := engine.ExportRequest{Fonts: fonts, Writer: export.NewRecorder()}
	if len(args) > 3 && args[2].Type() == js.TypeNumber && args[3].Type() == js.TypeNumber {
		req.Summary = &document.Point{X: args[2].Float(), Y: args[3].Float()}
	}

	data, err := eng.Export(context.Background(), req)
	if err != nil {
		slog.Error("export", "error", err)
		return errResult(err)
	}
	return js.ValueOf(string(data))
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.RenderJSON(pageArg(args)))
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf("")
	}
	res, ok := eng.HitTest(args[0].Int(), args[1].Float(), args[2].Float())
	if !ok {
		return js.ValueOf("")
	}
	return js.ValueOf(toJSON(res))
}

func getAnnotations(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(toJSON(eng.Annotations(pageArg(args))))
}

func getSession(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(toJSON(eng.Snapshot()))
}

func getDocuments(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(toJSON(eng.Documents()))
}

func getPendingRestore(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(toJSON(eng.PendingRestore()))
}

func getRubric(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(toJSON(eng.Rubric()))
}

func getScores(this js.Value, args []js.Value) interface{} {
	docID := optString(args, 0)
	if docID == "" {
		docID = eng.ActiveDocument()
	}
	return js.ValueOf(toJSON(map[string]interface{}{
		"scores": eng.Scores(docID),
		"total":  eng.Total(docID),
	}))
}

func getBank(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(toJSON(eng.Bank()))
}

func getState(this js.Value, args []js.Value) interface{} {
	page := pageArg(args)
	undoDepth, redoDepth := eng.HistoryDepth(page)
	return js.ValueOf(toJSON(map[string]interface{}{
		"activeDocument": eng.ActiveDocument(),
		"page":           eng.Page(),
		"pageCount":      eng.PageCount(),
		"zoom":           eng.Zoom(),
		"tool":           eng.Tool().String(),
		"penColor":       eng.PenColor(),
		"textSize":       eng.TextSize(),
		"gesture":        eng.GestureState().String(),
		"canUndo":        undoDepth > 0,
		"canRedo":        redoDepth > 0,
	}))
}

func rubricDiffers(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	sess, err := decodeSession(args[0].String())
	if err != nil {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.RubricDiffers(sess))
}

func shapeText(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(toJSON(bidi.ShapeText(optString(args, 0))))
}
