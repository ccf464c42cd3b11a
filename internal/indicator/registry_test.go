package indicator

import (
	"fmt"
	"testing"
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
)

// stubIndicator only carries a name; the registry never evaluates it.
type stubIndicator types.IndicatorType

func (s stubIndicator) Name() types.IndicatorType {
	return types.IndicatorType(s)
}

func (s stubIndicator) RawValue(_ IndicatorContext, _ string, _ time.Time, _ int) (float64, error) {
	return 0, nil
}

type RegistryTestSuite struct {
	suite.Suite
	registry IndicatorRegistry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) SetupTest() {
	suite.registry = NewIndicatorRegistry()
}

func (suite *RegistryTestSuite) TestRegisterAndGet() {
	rsi := stubIndicator(types.IndicatorTypeRSI)
	suite.Require().NoError(suite.registry.RegisterIndicator(rsi))

	got, err := suite.registry.GetIndicator(types.IndicatorTypeRSI)
	suite.Require().NoError(err)
	suite.Equal(rsi, got)
}

func (suite *RegistryTestSuite) TestRegisterDuplicate() {
	suite.Require().NoError(suite.registry.RegisterIndicator(stubIndicator(types.IndicatorTypeRSI)))

	err := suite.registry.RegisterIndicator(stubIndicator(types.IndicatorTypeRSI))
	suite.Require().Error(err)
	suite.Contains(err.Error(), "already registered")
	suite.True(errors.HasCode(err, errors.ErrCodeIndicatorAlreadyExists))
}

func (suite *RegistryTestSuite) TestGetMissing() {
	_, err := suite.registry.GetIndicator(types.IndicatorTypeRSI)

	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeIndicatorNotFound))
	suite.True(errors.IsConfigError(err))
}

func (suite *RegistryTestSuite) TestListIsSorted() {
	suite.Empty(suite.registry.ListIndicators())

	for _, name := range []types.IndicatorType{
		types.IndicatorTypeVolatility,
		types.IndicatorTypeRSI,
		types.IndicatorTypeCumulativeReturn,
	} {
		suite.Require().NoError(suite.registry.RegisterIndicator(stubIndicator(name)))
	}

	suite.Equal([]types.IndicatorType{
		types.IndicatorTypeCumulativeReturn,
		types.IndicatorTypeRSI,
		types.IndicatorTypeVolatility,
	}, suite.registry.ListIndicators())
}

func (suite *RegistryTestSuite) TestRemove() {
	suite.Require().NoError(suite.registry.RegisterIndicator(stubIndicator(types.IndicatorTypeRSI)))
	suite.Require().NoError(suite.registry.RemoveIndicator(types.IndicatorTypeRSI))

	_, err := suite.registry.GetIndicator(types.IndicatorTypeRSI)
	suite.Error(err)

	err = suite.registry.RemoveIndicator(types.IndicatorTypeRSI)
	suite.True(errors.HasCode(err, errors.ErrCodeIndicatorNotFound))
}

func (suite *RegistryTestSuite) TestConcurrentRegistration() {
	var group errgroup.Group

	for i := 0; i < 10; i++ {
		group.Go(func() error {
			return suite.registry.RegisterIndicator(stubIndicator(fmt.Sprintf("custom-%d", i)))
		})
	}

	suite.Require().NoError(group.Wait())
	suite.Len(suite.registry.ListIndicators(), 10)
}

func (suite *RegistryTestSuite) TestDefaultRegistry() {
	registry := NewDefaultRegistry()

	suite.ElementsMatch(types.AllIndicatorTypes, registry.ListIndicators())

	for _, name := range types.AllIndicatorTypes {
		indicator, err := registry.GetIndicator(name)
		suite.Require().NoError(err)
		suite.Equal(name, indicator.Name())
	}
}

func (suite *RegistryTestSuite) TestLookup() {
	registry := NewDefaultRegistry()

	for _, name := range types.AllIndicatorTypes {
		indicator, err := Lookup(registry, name)
		suite.Require().NoError(err, name)
		suite.Equal(name, indicator.Name())
	}

	_, err := Lookup(registry, "MACD")
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedIndicator))

	suite.Require().NoError(registry.RegisterIndicator(stubIndicator("custom")))

	_, err = Lookup(registry, "custom")
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedIndicator))

	suite.Require().NoError(registry.RemoveIndicator(types.IndicatorTypeVolatility))

	_, err = Lookup(registry, types.IndicatorTypeVolatility)
	suite.True(errors.HasCode(err, errors.ErrCodeIndicatorNotFound))
}
