package registry

import "github.com/aretw0/sparti/pkg/schema"

func builtins() []Component {
	return []Component{
		{
			Name:        "header",
			Description: "Site header with logo, navigation and call to action",
			Fields: []Field{
				{Name: "logo", Kind: schema.KindObject, Widget: WidgetImage},
				{Name: "menu", Kind: schema.KindArray},
				{Name: "showCart", Kind: schema.KindBoolean},
				{Name: "showSearch", Kind: schema.KindBoolean},
				{Name: "showAccount", Kind: schema.KindBoolean},
				{Name: "button", Kind: schema.KindObject},
			},
			Defaults: schema.Document{
				"logo": schema.Document{"src": schema.String(""), "alt": schema.String("")},
				"menu": schema.Array{
					schema.Document{"label": schema.String("Home"), "link": schema.String("/")},
				},
				"showSearch": schema.Bool(true),
				"button":     schema.Document{"label": schema.String("Get started"), "link": schema.String("/contact")},
			},
		},
		{
			Name:        "footer",
			Description: "Site footer with link columns and legal text",
			Fields: []Field{
				{Name: "logo", Kind: schema.KindObject, Widget: WidgetImage},
				{Name: "columns", Kind: schema.KindArray},
				{Name: "socialLinks", Kind: schema.KindArray},
				{Name: "copyright", Kind: schema.KindString},
			},
		},
		{
			Name:        "hero",
			Description: "Landing hero with headline, copy and primary action",
			Fields: []Field{
				{Name: "badge", Kind: schema.KindString},
				{Name: "title", Kind: schema.KindString},
				{Name: "description", Kind: schema.KindString, Widget: WidgetRichText},
				{Name: "image", Kind: schema.KindString, Widget: WidgetImage},
				{Name: "ctaText", Kind: schema.KindString},
				{Name: "ctaLink", Kind: schema.KindString},
			},
			Defaults: schema.Document{
				"title":   schema.String("Rank higher. Grow faster."),
				"ctaText": schema.String("Get a free audit"),
				"ctaLink": schema.String("/contact"),
			},
		},
		{
			Name:        "faq",
			Description: "Frequently asked questions",
			Fields: []Field{
				{Name: "title", Kind: schema.KindString},
				{Name: "items", Kind: schema.KindArray},
			},
			Defaults: schema.Document{
				"title": schema.String("Frequently asked questions"),
				"items": schema.Array{
					schema.Document{"question": schema.String(""), "answer": schema.String("")},
				},
			},
		},
		{
			Name:        "testimonials",
			Description: "Customer quotes",
			Fields: []Field{
				{Name: "title", Kind: schema.KindString},
				{Name: "items", Kind: schema.KindArray},
				{Name: "autoplay", Kind: schema.KindBoolean},
			},
		},
		{
			Name:        "features",
			Description: "Grid of service highlights",
			Fields: []Field{
				{Name: "title", Kind: schema.KindString},
				{Name: "subtitle", Kind: schema.KindString, Widget: WidgetRichText},
				{Name: "items", Kind: schema.KindArray},
				{Name: "columns", Kind: schema.KindNumber},
			},
			Defaults: schema.Document{"columns": schema.Number(3)},
		},
		{
			Name:        "cta",
			Description: "Closing call to action banner",
			Fields: []Field{
				{Name: "title", Kind: schema.KindString},
				{Name: "body", Kind: schema.KindString, Widget: WidgetRichText},
				{Name: "button", Kind: schema.KindObject},
			},
		},
		{
			Name:        "contact",
			Description: "Contact form and details",
			Fields: []Field{
				{Name: "title", Kind: schema.KindString},
				{Name: "email", Kind: schema.KindString},
				{Name: "phone", Kind: schema.KindString},
				{Name: "fields", Kind: schema.KindArray},
			},
		},
		{
			Name:        "blog",
			Description: "Latest posts teaser",
			Fields: []Field{
				{Name: "title", Kind: schema.KindString},
				{Name: "limit", Kind: schema.KindNumber},
				{Name: "showExcerpt", Kind: schema.KindBoolean},
			},
			Defaults: schema.Document{"limit": schema.Number(3), "showExcerpt": schema.Bool(true)},
		},
	}
}
