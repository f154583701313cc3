package log

import "testing"

func TestModuleByName(t *testing.T) {
	mod, ok := ModuleByName("loader")
	if !ok || mod != ModLoader {
		t.Errorf("ModuleByName(loader) = %v, %v", mod, ok)
	}
	if _, ok := ModuleByName("nope"); ok {
		t.Error("ModuleByName found an unknown module")
	}
}

func TestNewModule(t *testing.T) {
	mod := NewModule("testmod")
	got, ok := ModuleByName("testmod")
	if !ok || got != mod {
		t.Errorf("ModuleByName(testmod) = %v, %v, want %v", got, ok, mod)
	}
}

func TestDebugGating(t *testing.T) {
	if ModCPU.Enabled(DebugLevel) {
		t.Error("debug enabled by default")
	}
	if !ModCPU.Enabled(WarnLevel) {
		t.Error("warnings must always be enabled")
	}

	EnableDebugModules(ModCPU.Mask())
	defer DisableDebugModules(ModCPU.Mask())
	if !ModCPU.Enabled(DebugLevel) {
		t.Error("debug not enabled after EnableDebugModules")
	}
	if ModVGA.Enabled(DebugLevel) {
		t.Error("enabling one module leaked onto another")
	}
}
