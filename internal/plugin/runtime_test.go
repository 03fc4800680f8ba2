package plugin

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func luaPlugin(t *testing.T, manifest, script string) *Plugin {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "plugin")
	writeFile(t, filepath.Join(dir, "plugin.json"), manifest)
	writeFile(t, filepath.Join(dir, "init.lua"), script)
	p := NewPlugin(dir)
	if err := p.Err(); err != nil {
		t.Fatalf("NewPlugin() error = %v", err)
	}
	return p
}

func TestLuaPluginRepliesToRequest(t *testing.T) {
	p := luaPlugin(t, `{
		"name": "hover",
		"capabilities": {"supportedFileTypes": ["go"], "languageService": ["quick-info"]}
	}`, `
local oxbow = require("oxbow")
oxbow.on("request", function(msg)
    if msg.payload.name == "quick-info" then
        oxbow.reply(msg, "show-quick-info", { info = "func main()", documentation = msg.payload.context.bufferFullPath })
    end
end)
`)

	ch := NewInProcessChannel()
	defer ch.Close()
	responses := collectResponses(ch)

	if err := ch.LoadPlugin(p); err != nil {
		t.Fatalf("LoadPlugin() error = %v", err)
	}

	ctx := EventContext{BufferFullPath: "/main.go", Line: 1, Column: 6, Filetype: "go"}
	msg, _ := NewMessage(MessageRequest, RequestPayload{ID: "r1", Name: "quick-info", Context: ctx})
	if err := ch.Send(msg, NewFilter("go").WithCapability("quick-info")); err != nil {
		t.Fatal(err)
	}

	r := waitResponse(t, responses)
	if r.Type != "show-quick-info" || r.Meta.Plugin != "hover" {
		t.Fatalf("response = %+v", r)
	}
	if r.Meta.RequestID != "r1" || r.Meta.OriginEvent == nil || !r.Meta.OriginEvent.SamePosition(ctx) {
		t.Errorf("Meta = %+v", r.Meta)
	}
	var info struct {
		Info          string `json:"info"`
		Documentation string `json:"documentation"`
	}
	if err := json.Unmarshal(r.Payload, &info); err != nil {
		t.Fatal(err)
	}
	if info.Info != "func main()" || info.Documentation != "/main.go" {
		t.Errorf("payload = %+v", info)
	}
}

func TestLuaPluginSetErrors(t *testing.T) {
	p := luaPlugin(t, `{"name": "lint", "capabilities": {"supportedFileTypes": ["*"]}}`, `
oxbow.on("buffer-update", function(msg)
    local file = msg.payload.eventContext.bufferFullPath
    if #msg.payload.bufferLines > 1 then
        oxbow.diagnostics.set_errors("lint", file, {
            { message = "too long", range = { start = { line = 0, character = 0 }, ["end"] = { line = 0, character = 3 } } },
        })
    else
        oxbow.diagnostics.set_errors("lint", file, {})
    end
end)
`)

	ch := NewInProcessChannel()
	defer ch.Close()
	responses := collectResponses(ch)
	if err := ch.LoadPlugin(p); err != nil {
		t.Fatal(err)
	}

	send := func(lines ...string) {
		msg, _ := NewMessage(MessageBufferUpdate, BufferUpdatePayload{
			EventContext: EventContext{BufferFullPath: "/a.txt", Filetype: "text"},
			BufferLines:  lines,
		})
		if err := ch.Send(msg, NewFilter("text")); err != nil {
			t.Fatal(err)
		}
	}

	// Clean file first: nothing is sent.
	send("one")
	send("one", "two")

	r := waitResponse(t, responses)
	var p1 SetErrorsPayload
	if err := r.Decode(&p1); err != nil {
		t.Fatal(err)
	}
	if p1.Key != "lint" || p1.FileName != "/a.txt" || len(p1.Errors) != 1 || p1.Errors[0].Range.End.Character != 3 {
		t.Errorf("first set-errors = %+v", p1)
	}

	send("one")
	r = waitResponse(t, responses)
	var p2 SetErrorsPayload
	if err := r.Decode(&p2); err != nil {
		t.Fatal(err)
	}
	if p2.Errors == nil || len(p2.Errors) != 0 {
		t.Errorf("clearing set-errors = %+v", p2)
	}
}

func TestLuaPluginUnsolicitedSend(t *testing.T) {
	p := luaPlugin(t, `{"name": "hl", "capabilities": {"supportedFileTypes": ["*"]}}`, `
local ok = oxbow.send("clear-syntax-highlights", { file = "/a.go", key = oxbow.name })
assert(ok)
`)

	ch := NewInProcessChannel()
	defer ch.Close()
	responses := collectResponses(ch)
	if err := ch.LoadPlugin(p); err != nil {
		t.Fatal(err)
	}

	r := waitResponse(t, responses)
	if r.Type != "clear-syntax-highlights" || r.Meta.OriginEvent != nil {
		t.Errorf("response = %+v", r)
	}
	if string(r.Payload) != `{"file":"/a.go","key":"hl"}` {
		t.Errorf("payload = %s", r.Payload)
	}
}

func TestLuaPluginScriptError(t *testing.T) {
	p := luaPlugin(t, `{"name": "bad"}`, `this is not lua`)

	ch := NewInProcessChannel()
	defer ch.Close()
	if err := ch.LoadPlugin(p); err == nil {
		t.Error("LoadPlugin() should fail for a broken script")
	}
}

func TestLuaPluginSandboxed(t *testing.T) {
	p := luaPlugin(t, `{"name": "sneaky"}`, `os.execute("true")`)

	ch := NewInProcessChannel()
	defer ch.Close()
	if err := ch.LoadPlugin(p); err == nil {
		t.Error("LoadPlugin() should fail when the script reaches for os")
	}
}

func TestLoadPluginNotRunnable(t *testing.T) {
	dir := t.TempDir()
	ch := NewInProcessChannel()
	defer ch.Close()
	if err := ch.LoadPlugin(NewPlugin(dir)); err == nil {
		t.Error("LoadPlugin() should fail without an entry point")
	}
}
