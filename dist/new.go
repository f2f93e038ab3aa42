package dist

// Constructor makes a Distribution from named parameters.
type Constructor func(params map[string]interface{}) (Distribution, error)

var constructors = map[string]Constructor{
	"normal": func(ps map[string]interface{}) (Distribution, error) {
		mu, sigma, err := two("normal", ps, "mu", "sigma")
		if err != nil {
			return nil, err
		}
		return Normal(mu, sigma)
	},
	"lognormal": func(ps map[string]interface{}) (Distribution, error) {
		mu, sigma, err := two("lognormal", ps, "mu", "sigma")
		if err != nil {
			return nil, err
		}
		return LogNormal(mu, sigma)
	},
	"uniform": func(ps map[string]interface{}) (Distribution, error) {
		min, max, err := two("uniform", ps, "min", "max")
		if err != nil {
			return nil, err
		}
		return Uniform(min, max)
	},
	"gamma": func(ps map[string]interface{}) (Distribution, error) {
		a, b, err := two("gamma", ps, "alpha", "beta")
		if err != nil {
			return nil, err
		}
		return Gamma(a, b)
	},
	"beta": func(ps map[string]interface{}) (Distribution, error) {
		a, b, err := two("beta", ps, "alpha", "beta")
		if err != nil {
			return nil, err
		}
		return Beta(a, b)
	},
	"exponential": func(ps map[string]interface{}) (Distribution, error) {
		rate, err := one("exponential", ps, "rate")
		if err != nil {
			return nil, err
		}
		return Exponential(rate)
	},
	"bernoulli": func(ps map[string]interface{}) (Distribution, error) {
		p, err := one("bernoulli", ps, "p")
		if err != nil {
			return nil, err
		}
		return Bernoulli(p)
	},
	"poisson": func(ps map[string]interface{}) (Distribution, error) {
		lambda, err := one("poisson", ps, "lambda")
		if err != nil {
			return nil, err
		}
		return Poisson(lambda)
	},
	"categorical": func(ps map[string]interface{}) (Distribution, error) {
		ws, ok := AsFloats(ps["probs"])
		if !ok {
			return nil, &BadParams{"categorical", "probs must be a list of numbers"}
		}
		return Categorical(ws)
	},
	"delta": func(ps map[string]interface{}) (Distribution, error) {
		v, err := one("delta", ps, "v")
		if err != nil {
			return nil, err
		}
		return &Delta{V: v}, nil
	},
}

// Register adds (or replaces) a family.
//
// Not safe to call concurrently with New.  Register families during
// initialization.
func Register(family string, c Constructor) {
	constructors[family] = c
}

// New makes a Distribution given its family tag and parameters.
//
// The optional parameter "n" (a positive integer) wraps the family in
// an IID of that many draws.
func New(family string, params map[string]interface{}) (Distribution, error) {
	c, have := constructors[family]
	if !have {
		return nil, &UnknownFamily{family}
	}
	d, err := c(params)
	if err != nil {
		return nil, err
	}
	if x, have := params["n"]; have {
		f, ok := AsFloat(x)
		if !ok || f < 1 || f != float64(int(f)) {
			return nil, &BadParams{family, "n must be a positive integer"}
		}
		return &IID{Base: d, N: int(f)}, nil
	}
	return d, nil
}

func one(family string, ps map[string]interface{}, name string) (float64, error) {
	x, have := ps[name]
	if !have {
		return 0, &BadParams{family, "missing " + name}
	}
	f, ok := AsFloat(x)
	if !ok {
		return 0, &BadParams{family, name + " isn't a number"}
	}
	return f, nil
}

func two(family string, ps map[string]interface{}, a, b string) (float64, float64, error) {
	x, err := one(family, ps, a)
	if err != nil {
		return 0, 0, err
	}
	y, err := one(family, ps, b)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}
