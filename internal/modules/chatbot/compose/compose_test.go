package compose

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nimbus-server/internal/modules/chatbot/intent"
	"nimbus-server/internal/session"
	"nimbus-server/internal/store"
)

const fixtureCSV = `timestamp,station_id,station_name,tipo_equipo,lat,lon,temp,humedad,presion,viento_vel,viento_dir,pm_1,pm_2_5,pm_10,ica,precipitacion,temp_imputed,humedad_imputed,presion_imputed,viento_vel_imputed,viento_dir_imputed,ica_imputed,precipitacion_imputed
2025-11-01T10:00:00Z,1,Centro,AIR,7.10,-73.10,24.0,80,1010,4.2,180,5,12.0,20,40,0,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE
2025-11-01T11:00:00Z,1,Centro,VUE+AIR,7.10,-73.10,26.0,82,1009,NA,NA,6,14.0,22,60,0,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE
2025-11-02T09:00:00Z,2,Norte,AIR,7.30,-73.30,NA,70,NA,NA,NA,3,30.0,15,120,NA,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE
`

type mockCompleter struct {
	answer string
	err    error
	prompt string
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.prompt = prompt
	return m.answer, m.err
}

func newTestComposer(t *testing.T, completer *mockCompleter) *Composer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "readings.csv")
	if err := os.WriteFile(path, []byte(fixtureCSV), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	st := store.New(path)
	if err := st.Load(); err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	if completer == nil {
		return NewComposer(st, nil)
	}
	return NewComposer(st, completer)
}

func TestRenderGreeting(t *testing.T) {
	c := newTestComposer(t, nil)
	reply, menu := c.Render(context.Background(), intent.Intent{Action: intent.ActionGreeting}, session.MenuStations)
	if !strings.Contains(reply, "Nubi") || !strings.Contains(reply, "🅰️") {
		t.Errorf("reply = %q", reply)
	}
	if menu != session.MenuNone {
		t.Errorf("menu = %q; want %q", menu, session.MenuNone)
	}
}

func TestRenderStationList(t *testing.T) {
	c := newTestComposer(t, nil)
	reply, menu := c.Render(context.Background(), intent.Intent{Action: intent.ActionListStations}, session.MenuNone)
	if !strings.Contains(reply, "1. Centro (VUE+AIR)") || !strings.Contains(reply, "2. Norte (AIR)") {
		t.Errorf("reply = %q", reply)
	}
	if menu != session.MenuStations {
		t.Errorf("menu = %q; want %q", menu, session.MenuStations)
	}
}

func TestRenderConcepts(t *testing.T) {
	c := newTestComposer(t, nil)
	ctx := context.Background()

	t.Run("menu when no variable", func(t *testing.T) {
		reply, menu := c.Render(ctx, intent.Intent{Action: intent.ActionShowConcept}, session.MenuNone)
		if !strings.Contains(reply, "🅰️ PM2.5") || menu != session.MenuConcepts {
			t.Errorf("reply = %q, menu = %q", reply, menu)
		}
	})

	t.Run("named variable", func(t *testing.T) {
		reply, menu := c.Render(ctx, intent.Intent{Action: intent.ActionShowConcept, Variable: "la humedad"}, session.MenuNone)
		if !strings.Contains(reply, "vapor de agua") || menu != session.MenuNone {
			t.Errorf("reply = %q, menu = %q", reply, menu)
		}
	})

	t.Run("letter d is ica", func(t *testing.T) {
		reply, menu := c.Render(ctx, intent.Intent{Action: intent.ActionConceptByLetter, Letter: "d"}, session.MenuConcepts)
		if !strings.Contains(reply, "Índice de Calidad del Aire") || menu != session.MenuNone {
			t.Errorf("reply = %q, menu = %q", reply, menu)
		}
	})

	t.Run("invalid letter keeps menu", func(t *testing.T) {
		reply, menu := c.Render(ctx, intent.Intent{Action: intent.ActionConceptByLetter, Letter: "z"}, session.MenuConcepts)
		if !strings.Contains(reply, "de la A a la F") || menu != session.MenuConcepts {
			t.Errorf("reply = %q, menu = %q", reply, menu)
		}
	})
}

func TestRenderStationStatus(t *testing.T) {
	c := newTestComposer(t, nil)
	ctx := context.Background()

	t.Run("by number", func(t *testing.T) {
		reply, menu := c.Render(ctx, intent.Intent{Action: intent.ActionStationStatus, StationNumber: 2, HasNumber: true}, session.MenuStations)
		if !strings.Contains(reply, "Norte") || !strings.Contains(reply, "PM2.5: 30.0 µg/m³") {
			t.Errorf("reply = %q", reply)
		}
		if menu != session.MenuNone {
			t.Errorf("menu = %q", menu)
		}
	})

	t.Run("number out of range keeps menu", func(t *testing.T) {
		reply, menu := c.Render(ctx, intent.Intent{Action: intent.ActionStationStatus, StationNumber: 9, HasNumber: true}, session.MenuStations)
		if !strings.Contains(reply, "del 1 al 2") || menu != session.MenuStations {
			t.Errorf("reply = %q, menu = %q", reply, menu)
		}
	})

	t.Run("zero is out of range", func(t *testing.T) {
		reply, menu := c.Render(ctx, intent.Intent{Action: intent.ActionStationStatus, StationNumber: 0, HasNumber: true}, session.MenuStations)
		if !strings.Contains(reply, "del 1 al 2") || menu != session.MenuStations {
			t.Errorf("reply = %q, menu = %q", reply, menu)
		}
	})

	t.Run("by name substring", func(t *testing.T) {
		reply, _ := c.Render(ctx, intent.Intent{Action: intent.ActionStationStatus, StationName: "centro"}, session.MenuNone)
		if !strings.Contains(reply, "Centro") {
			t.Errorf("reply = %q", reply)
		}
	})

	t.Run("by name with typos", func(t *testing.T) {
		reply, _ := c.Render(ctx, intent.Intent{Action: intent.ActionStationStatus, StationName: "Nortee"}, session.MenuNone)
		if !strings.Contains(reply, "Norte") {
			t.Errorf("reply = %q", reply)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		reply, _ := c.Render(ctx, intent.Intent{Action: intent.ActionStationStatus, StationName: "Plutón Central"}, session.MenuNone)
		if !strings.Contains(reply, "No encontré") {
			t.Errorf("reply = %q", reply)
		}
	})

	t.Run("air quality verdict", func(t *testing.T) {
		// Norte's latest ICA is 120.
		reply, _ := c.Render(ctx, intent.Intent{Action: intent.ActionStationStatus, StationName: "Norte"}, session.MenuNone)
		if !strings.Contains(reply, "moderada") {
			t.Errorf("reply = %q", reply)
		}
	})
}

func TestInterpretAirQuality(t *testing.T) {
	tests := []struct {
		name     string
		ica      *float64
		pm25     *float64
		contains string
	}{
		{"excellent ica", ptr(30), nil, "excelente"},
		{"good ica", ptr(80), nil, "buena"},
		{"moderate ica", ptr(130), nil, "moderada"},
		{"unhealthy ica", ptr(180), nil, "no es saludable"},
		{"very unhealthy ica", ptr(250), nil, "muy poco saludable"},
		{"hazardous ica", ptr(400), nil, "peligrosa"},
		{"pm fallback", nil, ptr(40), "PM2.5 es moderado"},
		{"nothing", nil, nil, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := interpretAirQuality(tc.ica, tc.pm25)
			if tc.contains == "" {
				if got != "" {
					t.Errorf("got %q; want empty", got)
				}
				return
			}
			if !strings.Contains(got, tc.contains) {
				t.Errorf("got %q; want substring %q", got, tc.contains)
			}
		})
	}
}

func TestRenderTimeSeries(t *testing.T) {
	c := newTestComposer(t, nil)
	ctx := context.Background()

	reply, _ := c.Render(ctx, intent.Intent{
		Action:      intent.ActionTimeSeries,
		StationName: "Centro",
		Variable:    "temperatura",
		Days:        7,
	}, session.MenuNone)
	if !strings.Contains(reply, "Promedio: 25.0 °C") || !strings.Contains(reply, "Mediciones: 2") {
		t.Errorf("reply = %q", reply)
	}

	reply, _ = c.Render(ctx, intent.Intent{
		Action:      intent.ActionTimeSeries,
		StationName: "Centro",
		Variable:    "ozono",
	}, session.MenuNone)
	if !strings.Contains(reply, "No reconozco la variable") {
		t.Errorf("reply = %q", reply)
	}
}

func TestRenderOpenQuestion(t *testing.T) {
	ctx := context.Background()

	t.Run("out of scope", func(t *testing.T) {
		c := newTestComposer(t, &mockCompleter{answer: "should not be used"})
		reply, _ := c.Render(ctx, intent.Intent{Action: intent.ActionOpenQuestion, RawText: "¿quién ganó el fútbol ayer?"}, session.MenuNone)
		if !strings.Contains(reply, "fuera de mi área") {
			t.Errorf("reply = %q", reply)
		}
	})

	t.Run("ai answer with data context", func(t *testing.T) {
		mock := &mockCompleter{answer: "La estación Norte tiene el peor aire."}
		c := newTestComposer(t, mock)
		reply, _ := c.Render(ctx, intent.Intent{Action: intent.ActionOpenQuestion, RawText: "¿cuál estación tiene peor aire?"}, session.MenuNone)
		if reply != "La estación Norte tiene el peor aire." {
			t.Errorf("reply = %q", reply)
		}
		if !strings.Contains(mock.prompt, "2 estaciones, 3 registros") {
			t.Errorf("prompt missing data context: %q", mock.prompt)
		}
	})

	t.Run("ai failure falls back to canned answer", func(t *testing.T) {
		c := newTestComposer(t, &mockCompleter{err: errors.New("rate limited")})
		reply, _ := c.Render(ctx, intent.Intent{Action: intent.ActionOpenQuestion, RawText: "¿cómo está el aire comparado con ayer?"}, session.MenuNone)
		if !strings.Contains(reply, "ICA promedio") {
			t.Errorf("reply = %q", reply)
		}
	})

	t.Run("no completer uses canned answer", func(t *testing.T) {
		c := newTestComposer(t, nil)
		reply, _ := c.Render(ctx, intent.Intent{Action: intent.ActionOpenQuestion, RawText: "cuantos datos de clima tienen"}, session.MenuNone)
		if !strings.Contains(reply, "3 registros") {
			t.Errorf("reply = %q", reply)
		}
	})
}

func TestExplainForced(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a completer", func(t *testing.T) {
		c := newTestComposer(t, nil)
		if _, err := c.ExplainForced(ctx, "por qué llueve"); !errors.Is(err, ErrNoCompleter) {
			t.Errorf("err = %v; want ErrNoCompleter", err)
		}
	})

	t.Run("uses expert prompt", func(t *testing.T) {
		mock := &mockCompleter{answer: "Llueve por condensación."}
		c := newTestComposer(t, mock)
		got, err := c.ExplainForced(ctx, "por qué llueve")
		if err != nil || got != "Llueve por condensación." {
			t.Fatalf("got %q, err %v", got, err)
		}
		if !strings.Contains(mock.prompt, "meteoróloga experta") {
			t.Errorf("prompt = %q", mock.prompt)
		}
	})

	t.Run("surfaces completer errors", func(t *testing.T) {
		c := newTestComposer(t, &mockCompleter{err: errors.New("boom")})
		if _, err := c.ExplainForced(ctx, "por qué llueve"); err == nil {
			t.Error("want error")
		}
	})
}
