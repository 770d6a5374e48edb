package main

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/postparam/internal/cipher"
	"github.com/RowanDark/postparam/internal/config"
)

// openRecipes loads the configured recipe directory and seeds it with the
// built-in recipes.
func openRecipes(dirOverride string) (*cipher.RecipeManager, error) {
	dir := dirOverride
	if dir == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		dir = cfg.RecipesDir
	}

	rm := cipher.NewRecipeManager(dir)
	if err := rm.LoadRecipes(); err != nil {
		return nil, err
	}
	if err := rm.SaveBuiltins(); err != nil {
		return nil, err
	}
	return rm, nil
}

func runRecipeList(env *cmdEnv, args []string) int {
	fs := newFlagSet("recipe list", env.stderr)
	dir := fs.String("dir", "", "recipe directory (defaults to recipes_dir from config)")
	query := fs.StringP("search", "s", "", "only list recipes matching this text")
	if code, ok := parseFlags(fs, args, env.stderr); !ok {
		return code
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(env.stderr, "recipe list takes no arguments")
		return 2
	}

	rm, err := openRecipes(*dir)
	if err != nil {
		fmt.Fprintf(env.stderr, "load recipes: %v\n", err)
		return 1
	}

	recipes := rm.ListRecipes()
	if *query != "" {
		recipes = rm.SearchRecipes(*query)
	}
	for _, r := range recipes {
		fmt.Fprintf(env.stdout, "%-20s %s\n", r.Name, strings.Join(r.Pipeline.Steps, " > "))
	}
	return 0
}

func runRecipeShow(env *cmdEnv, args []string) int {
	fs := newFlagSet("recipe show", env.stderr)
	dir := fs.String("dir", "", "recipe directory (defaults to recipes_dir from config)")
	if code, ok := parseFlags(fs, args, env.stderr); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(env.stderr, "recipe show requires exactly one recipe name")
		return 2
	}

	rm, err := openRecipes(*dir)
	if err != nil {
		fmt.Fprintf(env.stderr, "load recipes: %v\n", err)
		return 1
	}

	recipe, ok := rm.GetRecipe(fs.Arg(0))
	if !ok {
		fmt.Fprintf(env.stderr, "recipe %q not found\n", fs.Arg(0))
		return 1
	}

	enc := yaml.NewEncoder(env.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(recipe); err != nil {
		fmt.Fprintf(env.stderr, "render recipe: %v\n", err)
		return 1
	}
	if err := enc.Close(); err != nil {
		fmt.Fprintf(env.stderr, "render recipe: %v\n", err)
		return 1
	}
	return 0
}

func runRecipeRun(env *cmdEnv, args []string) int {
	fs := newFlagSet("recipe run", env.stderr)
	dir := fs.String("dir", "", "recipe directory (defaults to recipes_dir from config)")
	reverse := fs.BoolP("reverse", "r", false, "run the inverse pipeline")
	if code, ok := parseFlags(fs, args, env.stderr); !ok {
		return code
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(env.stderr, "recipe run requires a recipe name")
		return 2
	}

	rm, err := openRecipes(*dir)
	if err != nil {
		fmt.Fprintf(env.stderr, "load recipes: %v\n", err)
		return 1
	}

	recipe, ok := rm.GetRecipe(fs.Arg(0))
	if !ok {
		fmt.Fprintf(env.stderr, "recipe %q not found\n", fs.Arg(0))
		return 1
	}

	input, err := readInput(fs.Args()[1:], env.stdin)
	if err != nil {
		fmt.Fprintln(env.stderr, err)
		return 1
	}

	pipeline := &recipe.Pipeline
	if *reverse {
		pipeline, err = recipe.Pipeline.Reverse()
		if err != nil {
			fmt.Fprintf(env.stderr, "recipe %s: %v\n", recipe.Name, err)
			return 1
		}
	}

	out, err := pipeline.Execute(context.Background(), []byte(input))
	if err != nil {
		fmt.Fprintf(env.stderr, "recipe %s: %v\n", recipe.Name, err)
		return 1
	}
	fmt.Fprintln(env.stdout, string(out))
	return 0
}
