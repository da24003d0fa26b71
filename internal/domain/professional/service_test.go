package professional

import (
	"context"
	"errors"
	"testing"

	"github.com/aihaudit/aih/internal/platform/apperr"
)

type mockRepo struct {
	items  map[int64]*Professional
	nextID int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[int64]*Professional)}
}

func (m *mockRepo) List(_ context.Context) ([]*Professional, error) {
	var out []*Professional
	for _, p := range m.items {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepo) Create(_ context.Context, p *Professional) error {
	m.nextID++
	p.ID = m.nextID
	m.items[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

func TestService_Create(t *testing.T) {
	svc := NewService(newMockRepo())
	p, err := svc.Create(context.Background(), CreateInput{Name: "  Dra. Ana ", Specialty: "Medicina"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if p.ID == 0 || p.Name != "Dra. Ana" {
		t.Errorf("unexpected professional %+v", p)
	}

	_, err = svc.Create(context.Background(), CreateInput{Name: "\x00", Specialty: "Medicina"})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for a blank name, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	svc := NewService(newMockRepo())
	p, _ := svc.Create(context.Background(), CreateInput{Name: "Ana", Specialty: "Enfermagem"})

	if err := svc.Delete(context.Background(), p.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	var nf *apperr.NotFoundError
	if err := svc.Delete(context.Background(), p.ID); !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}
