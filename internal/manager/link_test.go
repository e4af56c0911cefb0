package manager

import (
	"errors"
	"testing"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
)

func linklessDocument() state.AppState {
	document := buildDocument()
	document.Links = []state.Link{}
	return document
}

func TestCreateLinkBuildsManualLinkByDefault(testContext *testing.T) {
	service := newTestManager(testContext)
	document := linklessDocument()

	link, err := service.CreateLink(document, "content-1", "content-2", "")
	if err != nil {
		testContext.Fatalf("unexpected link error: %v", err)
	}
	if link.ID != "id-1" {
		testContext.Fatalf("expected provider-issued id, got %s", link.ID)
	}
	if link.Type != state.LinkTypeManual {
		testContext.Fatalf("expected manual link by default, got %s", link.Type)
	}
	if link.FromContentID != "content-1" || link.ToContentID != "content-2" {
		testContext.Fatalf("unexpected endpoints: %+v", link)
	}
}

func TestCreateLinkRejectsBadEndpoints(testContext *testing.T) {
	service := newTestManager(testContext)

	testCases := []struct {
		name          string
		fromContentID string
		toContentID   string
		wantSentinel  error
	}{
		{name: "missing-from", fromContentID: "content-missing", toContentID: "content-2", wantSentinel: state.ErrNotFound},
		{name: "missing-to", fromContentID: "content-1", toContentID: "content-missing", wantSentinel: state.ErrNotFound},
		{name: "self-link", fromContentID: "content-1", toContentID: "content-1", wantSentinel: state.ErrValidation},
	}

	for _, testCase := range testCases {
		testContext.Run(testCase.name, func(testContext *testing.T) {
			_, err := service.CreateLink(linklessDocument(), testCase.fromContentID, testCase.toContentID, state.LinkTypeManual)
			if !errors.Is(err, testCase.wantSentinel) {
				testContext.Fatalf("expected %v, got %v", testCase.wantSentinel, err)
			}
		})
	}
}

func TestCreateLinkRejectsDuplicatePairEitherDirection(testContext *testing.T) {
	service := newTestManager(testContext)
	document := buildDocument()

	if _, err := service.CreateLink(document, "content-1", "content-2", state.LinkTypeManual); !errors.Is(err, state.ErrValidation) {
		testContext.Fatalf("expected duplicate pair to fail, got %v", err)
	}
	if _, err := service.CreateLink(document, "content-2", "content-1", state.LinkTypeManual); !errors.Is(err, state.ErrValidation) {
		testContext.Fatalf("expected reversed duplicate pair to fail, got %v", err)
	}
}

func TestCreateLinkRejectsUnknownType(testContext *testing.T) {
	service := newTestManager(testContext)

	_, err := service.CreateLink(linklessDocument(), "content-1", "content-2", "derived")
	if !errors.Is(err, state.ErrValidation) {
		testContext.Fatalf("expected unknown type to fail, got %v", err)
	}
}

func TestDeleteLinkReportsOutcome(testContext *testing.T) {
	service := newTestManager(testContext)
	document := buildDocument()

	present := service.DeleteLink(document, "link-1")
	if !present.Deleted {
		testContext.Fatalf("expected clean delete outcome, got %+v", present)
	}

	absent := service.DeleteLink(document, "link-missing")
	if absent.Deleted || absent.Reason == "" {
		testContext.Fatalf("expected failed outcome with reason, got %+v", absent)
	}
}
