package thread

import (
	"testing"

	"github.com/google/uuid"

	"github.com/djassa/djassa-backend/internal/domain"
)

func TestKeySymmetry(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	product := uuid.New()

	if Key(a, b, nil) != Key(b, a, nil) {
		t.Errorf("general key not symmetric: %q vs %q", Key(a, b, nil), Key(b, a, nil))
	}
	if Key(a, b, &product) != Key(b, a, &product) {
		t.Errorf("product key not symmetric: %q vs %q", Key(a, b, &product), Key(b, a, &product))
	}
}

func TestKeySubjectSensitivity(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	p1 := uuid.New()
	p2 := uuid.New()

	general := Key(a, b, nil)
	k1 := Key(a, b, &p1)
	k2 := Key(a, b, &p2)

	if k1 == k2 {
		t.Errorf("different products produced the same key %q", k1)
	}
	if k1 == general || k2 == general {
		t.Errorf("product key collided with general key %q", general)
	}
}

func TestKeyDistinctPairs(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	if Key(a, b, nil) == Key(a, c, nil) {
		t.Error("different counterparts produced the same key")
	}
}

func TestMatchesBothDirections(t *testing.T) {
	viewer := uuid.New()
	counterpart := uuid.New()

	inbound := &domain.Message{SenderID: counterpart, RecipientID: viewer}
	outbound := &domain.Message{SenderID: viewer, RecipientID: counterpart}

	if !Matches(inbound, viewer, counterpart, nil) {
		t.Error("inbound message did not match")
	}
	if !Matches(outbound, viewer, counterpart, nil) {
		t.Error("outbound message did not match")
	}
}

func TestMatchesRejectsOtherParticipants(t *testing.T) {
	viewer := uuid.New()
	counterpart := uuid.New()
	stranger := uuid.New()

	msg := &domain.Message{SenderID: viewer, RecipientID: stranger}
	if Matches(msg, viewer, counterpart, nil) {
		t.Error("message to a third party matched the conversation")
	}

	msg = &domain.Message{SenderID: stranger, RecipientID: stranger}
	if Matches(msg, viewer, counterpart, nil) {
		t.Error("unrelated message matched the conversation")
	}
}

func TestMatchesProductScoping(t *testing.T) {
	viewer := uuid.New()
	counterpart := uuid.New()
	product := uuid.New()
	other := uuid.New()

	general := &domain.Message{SenderID: counterpart, RecipientID: viewer}
	scoped := &domain.Message{SenderID: counterpart, RecipientID: viewer, ProductID: &product}

	if Matches(general, viewer, counterpart, &product) {
		t.Error("general message matched a product thread")
	}
	if Matches(scoped, viewer, counterpart, nil) {
		t.Error("product message matched the general thread")
	}
	if !Matches(scoped, viewer, counterpart, &product) {
		t.Error("product message did not match its own thread")
	}
	if Matches(scoped, viewer, counterpart, &other) {
		t.Error("product message matched a different product thread")
	}
}
