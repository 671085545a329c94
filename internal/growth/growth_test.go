package growth_test

import (
	"errors"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fibrilsim/internal/config"
	"github.com/san-kum/fibrilsim/internal/dynamo"
	"github.com/san-kum/fibrilsim/internal/geometry"
	"github.com/san-kum/fibrilsim/internal/growth"
	"github.com/san-kum/fibrilsim/internal/pbc"
)

func expectValidFibrils(pos dynamo.Positions, p growth.Params) {
	GinkgoHelper()

	Expect(pos).To(HaveLen(p.NFibril * p.LFibril))
	for _, row := range pos {
		Expect(row).To(HaveLen(len(p.Cell)))
		for a, x := range row {
			Expect(x).To(BeNumerically(">=", 0))
			Expect(x).To(BeNumerically("<", p.Cell[a]))
		}
	}

	for f := 0; f < p.NFibril; f++ {
		for b := 1; b < p.LFibril; b++ {
			i := f*p.LFibril + b
			r := math.Sqrt(pbc.Distance2(pos[i-1], pos[i], p.Cell))
			Expect(r).To(BeNumerically("~", p.BondR0, 1e-9), "fibril %d bond %d", f, b)
		}
	}

	min2 := p.MinSeparation * p.MinSeparation
	for i := range pos {
		for j := i + 1; j < len(pos); j++ {
			Expect(pbc.Distance2(pos[i], pos[j], p.Cell)).To(BeNumerically(">=", min2), "beads %d and %d", i, j)
		}
	}
}

var _ = Describe("Grow", func() {
	var cfg *config.Params

	BeforeEach(func() {
		cfg = config.DefaultParams()
		cfg.LFibril = 20
	})

	DescribeTable("a single 20-bead fibril succeeds on every attempt",
		func(dim int) {
			cfg.NDim = dim
			p := growth.ParamsFromConfig(cfg)
			rng := rand.New(rand.NewSource(int64(11 * dim)))

			for attempt := 0; attempt < 15; attempt++ {
				pos, _, err := growth.Grow(p, rng)
				Expect(err).NotTo(HaveOccurred())
				expectValidFibrils(pos, p)
			}
		},
		Entry("in 2D", 2),
		Entry("in 3D", 3),
	)

	It("keeps fibrils apart in a bundle", func() {
		cfg.NFibrilX, cfg.NFibrilY = 3, 3
		cfg.LFibril = 12
		cfg.CellDim = []float64{25, 25}
		p := growth.ParamsFromConfig(cfg)

		pos, stats, err := growth.Grow(p, rand.New(rand.NewSource(3)))
		Expect(err).NotTo(HaveOccurred())
		expectValidFibrils(pos, p)
		Expect(stats.SeedAttempts).To(BeNumerically(">=", 9))
		Expect(stats.ExtendAttempts).To(BeNumerically(">=", 9*11))
	})

	It("grows a 3D bundle from a preset", func() {
		cfg = config.GetPreset("bundle3d")
		cfg.Seed = 5
		pos, _, err := growth.FromConfig(cfg)
		Expect(err).NotTo(HaveOccurred())
		expectValidFibrils(pos, growth.ParamsFromConfig(cfg))
	})

	It("is reproducible for a fixed seed", func() {
		p := growth.ParamsFromConfig(cfg)
		a, _, err := growth.Grow(p, rand.New(rand.NewSource(42)))
		Expect(err).NotTo(HaveOccurred())
		b, _, err := growth.Grow(p, rand.New(rand.NewSource(42)))
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(b))
	})

	DescribeTable("bends every chain to the preferred angle when the spread is zero",
		func(dim int, theta0 float64) {
			cfg.NDim = dim
			cfg.AngleTheta0 = theta0
			cfg.Growth.AngleSpread = 0
			cfg.Growth.MinSeparation = 0.5
			p := growth.ParamsFromConfig(cfg)

			pos, _, err := growth.Grow(p, rand.New(rand.NewSource(9)))
			Expect(err).NotTo(HaveOccurred())

			for j := 1; j < p.LFibril-1; j++ {
				u := make([]float64, dim)
				v := make([]float64, dim)
				for a := 0; a < dim; a++ {
					u[a] = pbc.MinimumImage(pos[j][a]-pos[j+1][a], p.Cell[a])
					v[a] = pbc.MinimumImage(pos[j][a]-pos[j-1][a], p.Cell[a])
				}
				cos := geometry.Dot(u, v) / (geometry.Norm(u) * geometry.Norm(v))
				Expect(cos).To(BeNumerically("~", math.Cos(theta0), 1e-9), "bead %d", j)
			}
		},
		Entry("straight in 2D", 2, math.Pi),
		Entry("straight in 3D", 3, math.Pi),
		Entry("bent in 2D", 2, 2*math.Pi/3),
		Entry("bent in 3D", 3, 3*math.Pi/4),
	)

	It("places beads freely when the minimum separation is zero", func() {
		cfg.Growth.MinSeparation = 0
		p := growth.ParamsFromConfig(cfg)
		pos, _, err := growth.Grow(p, rand.New(rand.NewSource(1)))
		Expect(err).NotTo(HaveOccurred())
		expectValidFibrils(pos, p)
	})

	Context("when the cell is too crowded", func() {
		It("reports a seeding failure with context", func() {
			p := growth.Params{
				Cell:          []float64{2.3, 2.3},
				NFibril:       20,
				LFibril:       1,
				BondR0:        config.DefaultBondR0,
				Theta0:        math.Pi,
				MinSeparation: 1.1,
				MaxAttempts:   50,
				MaxRetries:    2,
			}
			_, _, err := growth.Grow(p, rand.New(rand.NewSource(1)))
			Expect(errors.Is(err, dynamo.ErrGrowth)).To(BeTrue())

			var ge *dynamo.GrowthError
			Expect(errors.As(err, &ge)).To(BeTrue())
			Expect(ge.Stage).To(Equal(dynamo.StageSeed))
			Expect(ge.Fibril).To(BeNumerically(">", 0))
			Expect(ge.Attempts).To(Equal(50))
		})

		It("gives up extending after the retry budget", func() {
			p := growth.Params{
				Cell:          []float64{3, 3},
				NFibril:       4,
				LFibril:       10,
				BondR0:        config.DefaultBondR0,
				Theta0:        math.Pi,
				AngleSpread:   math.Pi / 4,
				MinSeparation: 1.1,
				MaxAttempts:   20,
				MaxRetries:    3,
			}
			_, stats, err := growth.Grow(p, rand.New(rand.NewSource(2)))
			Expect(err).To(MatchError(dynamo.ErrGrowth))

			var ge *dynamo.GrowthError
			Expect(errors.As(err, &ge)).To(BeTrue())
			if ge.Stage == dynamo.StageExtend {
				Expect(ge.Retries).To(Equal(3))
				Expect(ge.Bead).To(BeNumerically(">", 0))
				Expect(stats.Retries).To(BeNumerically(">=", 2))
			}
		})
	})

	DescribeTable("rejects invalid parameters",
		func(mutate func(*growth.Params), want error) {
			p := growth.ParamsFromConfig(config.DefaultParams())
			mutate(&p)
			_, _, err := growth.Grow(p, rand.New(rand.NewSource(1)))
			Expect(err).To(MatchError(want))
		},
		Entry("separation above bond length", func(p *growth.Params) { p.MinSeparation = 2 }, dynamo.ErrParameterBounds),
		Entry("zero attempts", func(p *growth.Params) { p.MaxAttempts = 0 }, dynamo.ErrParameterBounds),
		Entry("tiny cell", func(p *growth.Params) { p.Cell = []float64{2, 2} }, dynamo.ErrParameterBounds),
		Entry("4D cell", func(p *growth.Params) { p.Cell = []float64{9, 9, 9, 9} }, dynamo.ErrDimensionMismatch),
	)
})
