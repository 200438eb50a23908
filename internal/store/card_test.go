// ABOUTME: Integration tests for store/card.go — card CRUD, moves, labels, checklists.
// ABOUTME: GetBoardIDForCard's card → list → board walk backs the API authorization path.
package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/healertrix/taskmaster/internal/store"
	"github.com/healertrix/taskmaster/internal/testutil"
)

// seedBoard creates user, workspace, board, and one list.
func seedBoard(t *testing.T, s *store.Store) (boardID, listID, userID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	user, err := s.CreateUser(ctx, "owner@example.com", "Owner", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	ws, err := s.CreateWorkspaceWithOwner(ctx, "WS", "blue", "private", user.ID)
	if err != nil {
		t.Fatalf("CreateWorkspaceWithOwner: %v", err)
	}
	board, err := s.CreateBoard(ctx, ws.ID, user.ID, "Board", "blue", "workspace")
	if err != nil {
		t.Fatalf("CreateBoard: %v", err)
	}
	list, err := s.CreateList(ctx, board.ID, "Todo", 1)
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	return board.ID, list.ID, user.ID
}

func TestCreateCardAndGetBoardID(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	boardID, listID, userID := seedBoard(t, s)

	card, err := s.CreateCard(ctx, listID, userID, "Write tests", 1)
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if card.Title != "Write tests" || card.ListID != listID {
		t.Errorf("unexpected card: %+v", card)
	}

	got, err := s.GetBoardIDForCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetBoardIDForCard: %v", err)
	}
	if got == nil || *got != boardID {
		t.Errorf("board for card = %v, want %v", got, boardID)
	}

	// Unknown card resolves to nil, not an error.
	missing, err := s.GetBoardIDForCard(ctx, uuid.New())
	if err != nil {
		t.Fatalf("GetBoardIDForCard(missing): %v", err)
	}
	if missing != nil {
		t.Error("GetBoardIDForCard(missing) should return nil")
	}
}

func TestUpdateCard_DueDateSetAndClear(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	_, listID, userID := seedBoard(t, s)

	card, _ := s.CreateCard(ctx, listID, userID, "Card", 1)

	due := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	updated, err := s.UpdateCard(ctx, card.ID, store.UpdateCardParams{DueAt: &due})
	if err != nil {
		t.Fatalf("UpdateCard(set due): %v", err)
	}
	if updated.DueAt == nil || !updated.DueAt.Equal(due) {
		t.Errorf("due_at = %v, want %v", updated.DueAt, due)
	}

	cleared, err := s.UpdateCard(ctx, card.ID, store.UpdateCardParams{ClearDueAt: true})
	if err != nil {
		t.Fatalf("UpdateCard(clear due): %v", err)
	}
	if cleared.DueAt != nil {
		t.Errorf("due_at after clear = %v, want nil", cleared.DueAt)
	}
}

func TestMoveCard_AcrossLists(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	boardID, listID, userID := seedBoard(t, s)

	other, err := s.CreateList(ctx, boardID, "Done", 2)
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	card, _ := s.CreateCard(ctx, listID, userID, "Card", 1)

	if err := s.MoveCard(ctx, card.ID, other.ID, 5); err != nil {
		t.Fatalf("MoveCard: %v", err)
	}
	moved, _ := s.GetCardByID(ctx, card.ID)
	if moved.ListID != other.ID || moved.Position != 5 {
		t.Errorf("card after move: list=%v pos=%v", moved.ListID, moved.Position)
	}
}

func TestListCardsForBoard_SpansLists(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	boardID, listID, userID := seedBoard(t, s)

	other, _ := s.CreateList(ctx, boardID, "Doing", 2)
	_, _ = s.CreateCard(ctx, listID, userID, "One", 1)
	_, _ = s.CreateCard(ctx, other.ID, userID, "Two", 1)

	cards, err := s.ListCardsForBoard(ctx, boardID)
	if err != nil {
		t.Fatalf("ListCardsForBoard: %v", err)
	}
	if len(cards) != 2 {
		t.Errorf("got %d cards, want 2", len(cards))
	}
}

func TestLabels_AssignAndList(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	boardID, listID, userID := seedBoard(t, s)

	label, err := s.CreateLabel(ctx, boardID, "bug", "red")
	if err != nil {
		t.Fatalf("CreateLabel: %v", err)
	}
	card, _ := s.CreateCard(ctx, listID, userID, "Card", 1)

	if err := s.AssignLabel(ctx, card.ID, label.ID); err != nil {
		t.Fatalf("AssignLabel: %v", err)
	}
	// Double assignment is a no-op.
	if err := s.AssignLabel(ctx, card.ID, label.ID); err != nil {
		t.Fatalf("AssignLabel(again): %v", err)
	}

	labels, err := s.ListLabelsForBoard(ctx, boardID)
	if err != nil {
		t.Fatalf("ListLabelsForBoard: %v", err)
	}
	if len(labels) != 1 || labels[0].Name != "bug" {
		t.Errorf("unexpected labels: %+v", labels)
	}

	if err := s.UnassignLabel(ctx, card.ID, label.ID); err != nil {
		t.Fatalf("UnassignLabel: %v", err)
	}
}

func TestChecklists_ItemsRoundTrip(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	_, listID, userID := seedBoard(t, s)

	card, _ := s.CreateCard(ctx, listID, userID, "Card", 1)
	cl, err := s.CreateChecklist(ctx, card.ID, "Release steps", 1)
	if err != nil {
		t.Fatalf("CreateChecklist: %v", err)
	}
	item, err := s.AddChecklistItem(ctx, cl.ID, "Tag the release", 1)
	if err != nil {
		t.Fatalf("AddChecklistItem: %v", err)
	}
	if item.Done {
		t.Error("new item should not be done")
	}

	if err := s.SetChecklistItemDone(ctx, item.ID, true); err != nil {
		t.Fatalf("SetChecklistItemDone: %v", err)
	}

	lists, err := s.ListChecklistsForCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("ListChecklistsForCard: %v", err)
	}
	if len(lists) != 1 || len(lists[0].Items) != 1 {
		t.Fatalf("unexpected checklists: %+v", lists)
	}
	if !lists[0].Items[0].Done {
		t.Error("item should be done after SetChecklistItemDone")
	}
}

func TestDeleteCard_CascadesComments(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	_, listID, userID := seedBoard(t, s)

	card, _ := s.CreateCard(ctx, listID, userID, "Card", 1)
	comment, err := s.CreateComment(ctx, card.ID, userID, "first!")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	if err := s.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	gone, err := s.GetCommentByID(ctx, comment.ID)
	if err != nil {
		t.Fatalf("GetCommentByID: %v", err)
	}
	if gone != nil {
		t.Error("comment should cascade away with its card")
	}
}
