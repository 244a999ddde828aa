package model

// Decorator enriches a materialized form after every field has been built.
type Decorator interface {
	Decorate(*Form) error
}

// DecoratorFunc adapts a function into a Decorator.
type DecoratorFunc func(*Form) error

// Decorate calls the underlying function.
func (fn DecoratorFunc) Decorate(form *Form) error {
	return fn(form)
}
