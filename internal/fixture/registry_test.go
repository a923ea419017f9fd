package fixture

import (
	"context"
	"testing"

	"github.com/mockforge/mockforge-go/internal/events"
	"github.com/mockforge/mockforge-go/pkg/model"
)

func TestUpsertLastWriteWinsSingleEvent(t *testing.T) {
	bus := events.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := bus.Subscribe(ctx)
	reg := New(bus)

	f1 := &model.UnifiedFixture{ID: "fx1", Protocol: model.ProtocolHTTP, Enabled: true, Name: "v1"}
	reg.Upsert(f1)
	<-ch
	f2 := &model.UnifiedFixture{ID: "fx1", Protocol: model.ProtocolHTTP, Enabled: true, Name: "v2"}
	reg.Upsert(f2)

	if len(ch) != 1 {
		t.Fatalf("expected exactly one event for the replacing upsert, got %d", len(ch))
	}
	if ev := <-ch; ev.EventType != "fixture.updated" {
		t.Fatalf("expected a fixture.updated event, got %q", ev.EventType)
	}

	if len(reg.List()) != 1 {
		t.Fatalf("expected exactly one active fixture, got %d", len(reg.List()))
	}
	got, ok := reg.Get("fx1")
	if !ok || got.Name != "v2" {
		t.Fatalf("expected last-write-wins, got %+v", got)
	}
}

func TestHTTPFixtureMatchWithPathTemplate(t *testing.T) {
	reg := New(nil)
	cf := model.CustomFixture{
		Method: "GET", Path: "/api/v1/hives/{hiveId}",
		Status: 200, Response: map[string]interface{}{"id": "hive_001"},
	}
	reg.Upsert(FromCustomFixture(cf))

	req := model.NewProtocolRequest(model.ProtocolHTTP, model.PatternRequestResponse)
	req.Operation = "GET"
	req.Path = "/api/v1/hives/hive_001"

	matched := reg.Match(req)
	if matched == nil {
		t.Fatal("expected a match")
	}
	resp, err := ToResponse(matched, model.ProtocolHTTP)
	if err != nil {
		t.Fatalf("ToResponse error: %v", err)
	}
	if resp.Status.HTTPStatus != 200 {
		t.Errorf("expected HTTP 200, got %d", resp.Status.HTTPStatus)
	}
	if resp.ContentType != "application/json" {
		t.Errorf("expected default content type, got %q", resp.ContentType)
	}
	if string(resp.Body) != `{"id":"hive_001"}` {
		t.Errorf("unexpected body: %s", resp.Body)
	}
}

func TestGenericStatusRejectedForNonGraphQL(t *testing.T) {
	f := &model.UnifiedFixture{
		ID: "f1", Protocol: model.ProtocolHTTP, Enabled: true,
		Response: model.FixtureResponseTemplate{Status: model.FixtureStatus{Kind: model.FixtureStatusGeneric, GenericOK: true}},
	}
	if _, err := ToResponse(f, model.ProtocolHTTP); err == nil {
		t.Fatal("expected generic status to be rejected for HTTP")
	}
}

func TestGenericStatusAcceptedForGraphQL(t *testing.T) {
	f := &model.UnifiedFixture{
		ID: "f1", Protocol: model.ProtocolGraphQL, Enabled: true,
		Response: model.FixtureResponseTemplate{Status: model.FixtureStatus{Kind: model.FixtureStatusGeneric, GenericOK: true}},
	}
	resp, err := ToResponse(f, model.ProtocolGraphQL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Status.IsSuccess() {
		t.Error("expected success status")
	}
}

func TestBodyStringPassesThroughVerbatim(t *testing.T) {
	f := &model.UnifiedFixture{
		ID: "f1", Protocol: model.ProtocolHTTP, Enabled: true,
		Response: model.FixtureResponseTemplate{
			Status: model.FixtureStatus{Kind: model.FixtureStatusHTTP, HTTPCode: 200},
			Body:   `{"not": "reparsed"}`,
		},
	}
	resp, err := ToResponse(f, model.ProtocolHTTP)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != `{"not": "reparsed"}` {
		t.Errorf("expected verbatim pass-through, got %s", resp.Body)
	}
}

func TestDeleteRemovesFixture(t *testing.T) {
	reg := New(nil)
	reg.Upsert(&model.UnifiedFixture{ID: "f1", Protocol: model.ProtocolHTTP, Enabled: true})
	if !reg.Delete("f1") {
		t.Fatal("expected delete to succeed")
	}
	if _, ok := reg.Get("f1"); ok {
		t.Fatal("expected fixture to be gone")
	}
	if reg.Delete("f1") {
		t.Fatal("expected second delete to report false")
	}
}
