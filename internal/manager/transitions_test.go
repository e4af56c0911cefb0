package manager

import (
	"reflect"
	"testing"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
)

func TestPutAreaInsertsAndReplaces(testContext *testing.T) {
	service := newTestManager(testContext)
	document := buildDocument()
	witness := buildDocument()

	area, err := service.CreateArea(document, "Ideas")
	if err != nil {
		testContext.Fatalf("unexpected create error: %v", err)
	}

	next := PutArea(document, area)
	if len(next.Areas) != 3 {
		testContext.Fatalf("expected 3 areas, got %d", len(next.Areas))
	}
	if !reflect.DeepEqual(document, witness) {
		testContext.Fatalf("expected the input document to stay untouched")
	}
	mustValidDocument(testContext, next)

	renamed := area
	renamed.Name = "Better Ideas"
	replaced := PutArea(next, renamed)
	if len(replaced.Areas) != 3 {
		testContext.Fatalf("expected replacement, not growth, got %d areas", len(replaced.Areas))
	}
	if stored, _ := replaced.AreaByID(area.ID); stored.Name != "Better Ideas" {
		testContext.Fatalf("expected replaced area name, got %q", stored.Name)
	}
}

func TestPutContentKeepsAreaMirrorsInSync(testContext *testing.T) {
	document := buildDocument()

	moved, _ := document.ContentByID("content-2")
	moved.AreaID = "area-2"

	next := PutContent(document, moved)
	firstArea, _ := next.AreaByID("area-1")
	secondArea, _ := next.AreaByID("area-2")

	if !reflect.DeepEqual(firstArea.ContentIDs, []string{"content-1"}) {
		testContext.Fatalf("expected the old area to drop the content, got %v", firstArea.ContentIDs)
	}
	if !reflect.DeepEqual(secondArea.ContentIDs, []string{"content-2"}) {
		testContext.Fatalf("expected the new area to list the content, got %v", secondArea.ContentIDs)
	}
	mustValidDocument(testContext, next)
}

func TestPutContentListsContentOnce(testContext *testing.T) {
	document := buildDocument()
	content, _ := document.ContentByID("content-1")

	next := PutContent(PutContent(document, content), content)
	area, _ := next.AreaByID("area-1")

	count := 0
	for _, contentID := range area.ContentIDs {
		if contentID == "content-1" {
			count++
		}
	}
	if count != 1 {
		testContext.Fatalf("expected the mirror to list the content once, got %d", count)
	}
}

func TestPutContentAppendsNewContent(testContext *testing.T) {
	service := newTestManager(testContext)
	document := buildDocument()

	content, err := service.CreateContent(document, "area-2", "Fresh")
	if err != nil {
		testContext.Fatalf("unexpected create error: %v", err)
	}

	next := PutContent(document, content)
	if len(next.Contents) != 3 {
		testContext.Fatalf("expected 3 contents, got %d", len(next.Contents))
	}
	area, _ := next.AreaByID("area-2")
	if !reflect.DeepEqual(area.ContentIDs, []string{content.ID}) {
		testContext.Fatalf("expected the new area to list the content, got %v", area.ContentIDs)
	}
	mustValidDocument(testContext, next)
}

func TestRemoveContentCascadesLinksAndMirrors(testContext *testing.T) {
	document := buildDocument()

	next := RemoveContent(document, "content-1")
	if len(next.Contents) != 1 {
		testContext.Fatalf("expected 1 content, got %d", len(next.Contents))
	}
	if len(next.Links) != 0 {
		testContext.Fatalf("expected links touching the content to be removed, got %v", next.Links)
	}
	area, _ := next.AreaByID("area-1")
	if !reflect.DeepEqual(area.ContentIDs, []string{"content-2"}) {
		testContext.Fatalf("expected the mirror to drop the content, got %v", area.ContentIDs)
	}
	if next.CurrentContentID != "" {
		testContext.Fatalf("expected the selection to be cleared, got %q", next.CurrentContentID)
	}
	mustValidDocument(testContext, next)
}

func TestRemoveAreaCascadeRemovesAreaAndSelection(testContext *testing.T) {
	document := buildDocument()

	next := document
	for _, contentID := range ContentIDsForCascade(next, "area-1") {
		next = RemoveContent(next, contentID)
	}
	next = RemoveArea(next, "area-1")

	if len(next.Areas) != 1 {
		testContext.Fatalf("expected 1 area, got %d", len(next.Areas))
	}
	if len(next.Contents) != 0 {
		testContext.Fatalf("expected no contents, got %d", len(next.Contents))
	}
	if len(next.Links) != 0 {
		testContext.Fatalf("expected no links, got %d", len(next.Links))
	}
	if next.CurrentAreaID != "" || next.CurrentContentID != "" {
		testContext.Fatalf("expected selections to be cleared, got %q/%q", next.CurrentAreaID, next.CurrentContentID)
	}
	mustValidDocument(testContext, next)
}

func TestPutAndRemoveLink(testContext *testing.T) {
	document := buildDocument()
	document.Links = []state.Link{}
	service := newTestManager(testContext)

	link, err := service.CreateLink(document, "content-1", "content-2", state.LinkTypeAuto)
	if err != nil {
		testContext.Fatalf("unexpected link error: %v", err)
	}

	next := PutLink(document, link)
	if len(next.Links) != 1 {
		testContext.Fatalf("expected 1 link, got %d", len(next.Links))
	}
	mustValidDocument(testContext, next)

	cleared := RemoveLink(next, link.ID)
	if len(cleared.Links) != 0 {
		testContext.Fatalf("expected link to be removed, got %v", cleared.Links)
	}
}

func TestSetCurrentSelection(testContext *testing.T) {
	document := buildDocument()

	next := SetCurrentArea(document, "area-2")
	if next.CurrentAreaID != "area-2" {
		testContext.Fatalf("expected selected area, got %q", next.CurrentAreaID)
	}
	if document.CurrentAreaID != "area-1" {
		testContext.Fatalf("expected input selection to stay untouched")
	}

	cleared := SetCurrentContent(next, "")
	if cleared.CurrentContentID != "" {
		testContext.Fatalf("expected cleared content selection, got %q", cleared.CurrentContentID)
	}
	mustValidDocument(testContext, cleared)
}
