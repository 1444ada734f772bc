package lifescope_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/baxromumarov/lifescope"
)

func ExampleRun() {
	err := lifescope.Run(context.Background(), func(sc *lifescope.Scope) {
		sc.Launch("hello", func(ctx context.Context) error {
			fmt.Println("hello")
			return nil
		})
		sc.Launch("world", func(ctx context.Context) error {
			fmt.Println("world")
			return nil
		})
	})
	if err != nil {
		fmt.Println("error:", err)
	}
	// Unordered output:
	// hello
	// world
}

func ExampleRun_propagate() {
	err := lifescope.Run(context.Background(), func(sc *lifescope.Scope) {
		sc.Launch("quick-fail", func(ctx context.Context) error {
			return errors.New("something went wrong")
		})
		sc.Launch("long-task", func(ctx context.Context) error {
			// Cancelled when quick-fail returns its error.
			<-ctx.Done()
			return ctx.Err()
		})
	}, lifescope.WithErrorHandler(func(string, error) {}))
	fmt.Println(lifescope.CauseOf(err))
	// Output: something went wrong
}

func ExampleRun_supervise() {
	err := lifescope.Run(context.Background(), func(sc *lifescope.Scope) {
		for i := 0; i < 3; i++ {
			sc.Launch(fmt.Sprintf("task-%d", i), func(ctx context.Context) error {
				return fmt.Errorf("error from task %d", i)
			})
		}
	}, lifescope.WithPolicy(lifescope.Supervise), lifescope.WithErrorHandler(func(string, error) {}))
	fmt.Println("failures:", len(lifescope.AllTaskErrors(err)))
	// Output: failures: 3
}

func ExampleAsync() {
	sc := lifescope.New(context.Background())
	d := lifescope.Async(sc, "answer", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	v, err := d.Await(context.Background())
	fmt.Println(v, err)
	_ = sc.Wait()
	// Output: 42 <nil>
}

func ExampleScope_Child() {
	parent := lifescope.New(context.Background(), lifescope.WithName("screen"))
	child := parent.Child("list")
	child.Launch("load", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	parent.Cancel()
	fmt.Println(errors.Is(parent.Wait(), lifescope.ErrCancelled))
	// Output: true
}
