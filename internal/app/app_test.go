package app

import (
	"testing"

	"bcp-export/internal/config"
	"bcp-export/internal/domain"
)

func TestDestinations(t *testing.T) {
	cfg := config.AppConfig{
		Flows: map[string]config.FlowConfig{
			config.FlowLeads: {BasePath: "/b", Destinations: []string{"NMKT", "PAN"}},
			config.FlowAmeyo: {BasePath: "/b", Destinations: []string{"PITX"}},
		},
		FTPServers: map[string]config.FTPServer{
			"NMKT": {Name: "NMKT", Host: "nmkt.example.com", Port: 21, Username: "u", Password: "p"},
			"PAN":  {Name: "PAN", Host: "pan.example.com"},
		},
	}

	got := Destinations(cfg)
	leads := got[config.FlowLeads]
	if len(leads) != 2 || leads[0].Name != "NMKT" || leads[1].Name != "PAN" {
		t.Fatalf("unexpected leads destinations %+v", leads)
	}
	if !leads[0].Complete() || leads[1].Complete() {
		t.Fatalf("credentials not carried over: %+v", leads)
	}
	if len(got[config.FlowAmeyo]) != 0 {
		t.Fatalf("unknown destination should be skipped; got %+v", got[config.FlowAmeyo])
	}
}

func TestNoiseFilter_DefaultsAndOverrides(t *testing.T) {
	auto := domain.DispositionEvent{
		StatusCode: domain.Text("BULK SMS SENT - AUTO"),
		Notes:      domain.Text("System Auto Update Remarks For PD"),
	}

	if !NoiseFilter(config.PipelineConfig{}).IsNoise(auto) {
		t.Fatal("built-in lists should flag the automatic remark")
	}

	custom := NoiseFilter(config.PipelineConfig{NoisePhrases: []string{"robot call"}, StatusMarkers: []string{"ROBOT"}})
	if custom.IsNoise(auto) {
		t.Fatal("configured lists should replace the built-in ones")
	}
	robot := domain.DispositionEvent{StatusCode: domain.Text("ROBOT"), Notes: domain.Text("robot call")}
	if !custom.IsNoise(robot) {
		t.Fatal("configured phrase should be flagged")
	}
}
