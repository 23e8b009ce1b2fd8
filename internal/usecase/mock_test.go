package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/short-links/internal/entity"
)

type mockURLRepository struct {
	mock.Mock
}

func (m *mockURLRepository) Insert(ctx context.Context, url *entity.URL) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *mockURLRepository) FindByCode(ctx context.Context, code string) (*entity.URL, error) {
	args := m.Called(ctx, code)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *mockURLRepository) ListAll(ctx context.Context) ([]*entity.URL, error) {
	args := m.Called(ctx)
	urls, _ := args.Get(0).([]*entity.URL)
	return urls, args.Error(1)
}

func (m *mockURLRepository) Update(ctx context.Context, id string, mutate func(*entity.URL) error) (*entity.URL, error) {
	args := m.Called(ctx, id, mutate)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *mockURLRepository) Remove(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type fixedGenerator struct {
	codes []string
	calls int
}

func (g *fixedGenerator) Generate() (string, error) {
	code := g.codes[g.calls%len(g.codes)]
	g.calls++
	return code, nil
}

type failingGenerator struct {
	err error
}

func (g failingGenerator) Generate() (string, error) {
	return "", g.err
}
