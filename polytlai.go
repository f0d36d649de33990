// Package polytlai fans a piece of text out to several AI translation
// providers at once, streams each provider's result as it lands, and asks a
// judge model to compare the translations once at least two succeed.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/polytlai"
//	    "github.com/ZaguanLabs/polytlai/provider"
//	)
//
//	func main() {
//	    o := polytlai.NewOrchestrator(provider.DefaultRegistry(),
//	        polytlai.WithAnalysisTimeout(45*time.Second),
//	    )
//
//	    run, err := o.Start(context.Background(), polytlai.TranslationRequest{
//	        Text:      "Hello World",
//	        Providers: []polytlai.ProviderID{polytlai.ProviderOpenAI, polytlai.ProviderDeepSeek},
//	    }, polytlai.Credentials{
//	        polytlai.ProviderOpenAI:   os.Getenv("OPENAI_API_KEY"),
//	        polytlai.ProviderDeepSeek: os.Getenv("DEEPSEEK_API_KEY"),
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    for entry := range run.Updates() {
//	        fmt.Println(entry.Key, entry.Status, entry.Text)
//	    }
//	}
package polytlai
