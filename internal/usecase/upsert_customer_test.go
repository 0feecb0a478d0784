package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/programbi/crm-leads/internal/infra/integration/shopify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockShopifyGateway
type MockShopifyGateway struct {
	mock.Mock
}

func (m *MockShopifyGateway) SearchByEmail(ctx context.Context, email string) (*shopify.Customer, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shopify.Customer), args.Error(1)
}

func (m *MockShopifyGateway) CreateCustomer(ctx context.Context, input shopify.CreateCustomerInput) (*shopify.Customer, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shopify.Customer), args.Error(1)
}

func (m *MockShopifyGateway) UpdateCustomer(ctx context.Context, input shopify.UpdateCustomerInput) (*shopify.Customer, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shopify.Customer), args.Error(1)
}

func strPtr(s string) *string { return &s }

func newUpsert(gw ShopifyGateway) *UpsertCustomerUseCase {
	uc := NewUpsertCustomerUseCase(gw)
	uc.Now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }
	return uc
}

func sampleUpsert() UpsertCustomerInput {
	return UpsertCustomerInput{
		Name:  "Ana María Rojas",
		Email: "A@x.com",
		Phone: "+56987654321",
		Tags:  []string{"lead-web", "crm-sync", "curso-python"},
		Note:  "Origen: Web",
	}
}

// TestUpsertCreatesWhenNotFound - Teste do caminho de criação com consentimento de marketing
func TestUpsertCreatesWhenNotFound(t *testing.T) {
	gw := new(MockShopifyGateway)
	gw.On("SearchByEmail", mock.Anything, "a@x.com").Return(nil, nil)
	gw.On("CreateCustomer", mock.Anything, shopify.CreateCustomerInput{
		FirstName: "Ana",
		LastName:  "María Rojas",
		Email:     "a@x.com",
		Phone:     "+56987654321",
		Tags:      "lead-web, crm-sync, curso-python",
		Note:      "Origen: Web",
		ConsentAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}).Return(&shopify.Customer{ID: 77, Email: "a@x.com"}, nil)

	out, err := newUpsert(gw).Execute(context.Background(), sampleUpsert())

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.True(t, out.Created)
	assert.Equal(t, int64(77), out.Customer.ID)
	gw.AssertExpectations(t)
}

// TestUpsertMergesExisting - tags unidas e nota acumulada com delimitador
func TestUpsertMergesExisting(t *testing.T) {
	gw := new(MockShopifyGateway)
	gw.On("SearchByEmail", mock.Anything, "a@x.com").
		Return(&shopify.Customer{ID: 5, Tags: "VIP, Lead-Web", Note: strPtr("Primera visita")}, nil)
	gw.On("UpdateCustomer", mock.Anything, shopify.UpdateCustomerInput{
		ID:   5,
		Tags: "VIP, Lead-Web, crm-sync, curso-python",
		Note: "Primera visita\n---\nOrigen: Web",
	}).Return(&shopify.Customer{ID: 5, Tags: "VIP, Lead-Web, crm-sync, curso-python"}, nil)

	out, err := newUpsert(gw).Execute(context.Background(), sampleUpsert())

	require.NoError(t, err)
	assert.False(t, out.Created)
	assert.Equal(t, int64(5), out.Customer.ID)
	gw.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
}

func TestUpsertFallsBackToUpdateWhenEmailTaken(t *testing.T) {
	gw := new(MockShopifyGateway)
	gw.On("SearchByEmail", mock.Anything, "a@x.com").Return(nil, nil).Once()
	gw.On("CreateCustomer", mock.Anything, mock.Anything).
		Return(nil, &shopify.APIError{Operation: "create", StatusCode: 422, Body: `{"errors":{"email":["has already been taken"]}}`})
	gw.On("SearchByEmail", mock.Anything, "a@x.com").Return(&shopify.Customer{ID: 9}, nil).Once()
	gw.On("UpdateCustomer", mock.Anything, mock.MatchedBy(func(in shopify.UpdateCustomerInput) bool { return in.ID == 9 })).
		Return(&shopify.Customer{ID: 9}, nil)

	out, err := newUpsert(gw).Execute(context.Background(), sampleUpsert())

	require.NoError(t, err)
	assert.Equal(t, int64(9), out.Customer.ID)
	gw.AssertExpectations(t)
}

func TestUpsertPropagatesUpstreamRejection(t *testing.T) {
	gw := new(MockShopifyGateway)
	gw.On("SearchByEmail", mock.Anything, mock.Anything).Return(nil, nil)
	gw.On("CreateCustomer", mock.Anything, mock.Anything).
		Return(nil, &shopify.APIError{Operation: "create", StatusCode: 422, Body: `{"errors":{"phone":["is invalid"]}}`})

	_, err := newUpsert(gw).Execute(context.Background(), sampleUpsert())

	apiErr, ok := shopify.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 422, apiErr.StatusCode)
}

func TestUpsertValidation(t *testing.T) {
	gw := new(MockShopifyGateway)

	_, err := newUpsert(gw).Execute(context.Background(), UpsertCustomerInput{Email: "not-an-email", Phone: "12"})

	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, de.Code)
	errs := de.Details.([]ValidationError)
	assert.Len(t, errs, 2)
	gw.AssertNotCalled(t, "SearchByEmail", mock.Anything, mock.Anything)
}

func TestUpsertSearchFailure(t *testing.T) {
	gw := new(MockShopifyGateway)
	gw.On("SearchByEmail", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: timeout"))

	_, err := newUpsert(gw).Execute(context.Background(), sampleUpsert())

	assert.ErrorContains(t, err, "timeout")
}

func TestMergeTags(t *testing.T) {
	assert.Equal(t, "a, b, c", MergeTags(" a ,b,", []string{"B", "c", " "}))
	assert.Equal(t, "x", MergeTags("", []string{"x", "X"}))
	assert.Equal(t, "", MergeTags("", nil))
}

func TestAppendNote(t *testing.T) {
	assert.Equal(t, "nueva", AppendNote("", "nueva"))
	assert.Equal(t, "vieja", AppendNote("vieja", "  "))
	assert.Equal(t, "vieja\n---\nnueva", AppendNote("vieja", "nueva"))
	// retry acumula o mesmo fragmento
	assert.Equal(t, "n\n---\nn", AppendNote(AppendNote("", "n"), "n"))
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("")
	assert.Equal(t, "Cliente", first)
	assert.Equal(t, "", last)

	first, last = SplitName("  Ana   María Rojas ")
	assert.Equal(t, "Ana", first)
	assert.Equal(t, "María Rojas", last)
}
