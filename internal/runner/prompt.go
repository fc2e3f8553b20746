package runner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/axionhq/relaywatch/internal/layout"
	"github.com/axionhq/relaywatch/internal/queue"
)

// universalGuidelines is prepended to every chat prompt.
const universalGuidelines = `
---
IMPORTANT RESPONSE GUIDELINES:
- When providing URLs in your response, ALWAYS format them as clickable markdown links: [http://example.com](http://example.com) - never as plain text URLs.
- If you create any web pages, HTML files, or web applications, deploy them to /opt/clawd/projects/.preview/ so they are viewable at [http://127.0.0.1:8800/](http://127.0.0.1:8800/). Copy or write files directly into that directory. For multi-page sites, put the main page as index.html.
---

`

// testKeywords trigger the screenshot-capture protocol.
var testKeywords = []string{"playwright", "test", "screenshot", "browser", "login", "ui test"}

// mockupKeywords trigger the design-mockup workflow.
var mockupKeywords = []string{
	"mockup", "mock up", "mock-up", "design mockup", "html mockup",
	"css mockup", "web design", "ui mockup", "landing page design",
	"page mockup", "create a design", "wireframe", "prototype design",
	"layout mockup", "design a page", "design a website", "page design",
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

func containsAny(message string, keywords []string) bool {
	lower := strings.ToLower(message)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// BuildPrompt assembles the full prompt for a worker invocation: policy
// blocks (chat jobs only), the attached-images block, the user message, and
// any previous question answers. Non-chat job types get the message verbatim
// plus images and answers.
func BuildPrompt(job *queue.Job, lay layout.Layout, imagePaths []string) string {
	var b strings.Builder

	if job.EffectiveType() == queue.TypeChat {
		b.WriteString(universalGuidelines)
		if containsAny(job.Message, testKeywords) {
			b.WriteString(screenshotInstructions(job.ID, lay.ScreenshotsDir()))
		}
		if containsAny(job.Message, mockupKeywords) {
			b.WriteString(mockupInstructions(job, lay, imagePaths))
		}
	}

	if len(imagePaths) > 0 {
		b.WriteString("\n---\nThe user has attached the following image(s). Please read and analyze them:\n")
		for _, p := range imagePaths {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}

	b.WriteString(job.Message)

	if job.ContextAnswers != "" {
		b.WriteString("\n\n---\nPrevious answers from user:\n")
		b.WriteString(job.ContextAnswers)
	}

	return b.String()
}

func screenshotInstructions(jobID, screenshotDir string) string {
	return fmt.Sprintf(`
---
IMPORTANT: When running Playwright or browser tests, ALWAYS capture screenshots to document your testing:

1. Save screenshots to: %[1]s/
2. Use descriptive filenames like: %[2]s_step1_login_page.png, %[2]s_step2_after_login.png
3. In your Playwright code, use: await page.screenshot({ path: '%[1]s/%[2]s_descriptive_name.png', fullPage: true })
4. Take screenshots at key moments: before actions, after actions, on errors
5. After testing, list the screenshots you captured so they can be displayed to the user

Example Playwright screenshot code:
`+"```javascript"+`
await page.screenshot({ path: '%[1]s/%[2]s_initial.png', fullPage: true });
// ... do action ...
await page.screenshot({ path: '%[1]s/%[2]s_result.png', fullPage: true });
`+"```"+`
---

`, screenshotDir, jobID)
}

func mockupInstructions(job *queue.Job, lay layout.Layout, imagePaths []string) string {
	screenshotDir := lay.ScreenshotsDir()
	tempDir := lay.TempDir()

	var urlSection string
	if target := urlPattern.FindString(job.Message); target != "" {
		urlSection = fmt.Sprintf(`
**URL REFERENCE WORKFLOW (do this FIRST):**
The user wants designs based on: %[1]s
1. Use Playwright to navigate to %[1]s and screenshot it
2. Save reference screenshot to: %[2]s/%[3]s_reference.png
3. Read the reference screenshot to analyze the design (colors, layout, typography, spacing)
4. Use page.evaluate() to extract key CSS values if helpful
5. Your 3 mockup variations should be inspired by but NOT copies of the reference
`, target, screenshotDir, job.ID)
	}

	var screenshotSection string
	if len(imagePaths) > 0 {
		var paths strings.Builder
		for _, p := range imagePaths {
			fmt.Fprintf(&paths, "  - %s\n", p)
		}
		screenshotSection = fmt.Sprintf(`
**SCREENSHOT REPLICATION WORKFLOW (do this FIRST):**
The user has attached screenshot(s) to replicate/restyle:
%s1. Read and analyze the attached screenshot(s) carefully
2. Identify: layout structure, components, colors, fonts, spacing, visual hierarchy
3. Variation A should be a faithful recreation of the screenshot
4. Variation B should be an improved version (better spacing, modern typography)
5. Variation C should be an alternative aesthetic (different color scheme or layout)
`, paths.String())
	}

	return fmt.Sprintf(`
---
DESIGN MOCKUP WORKFLOW - Follow these steps precisely:
%[1]s%[2]s
**STEP 1 - Generate 3 HTML Design Variations:**
Create 3 distinct, self-contained HTML files. Each must be complete with DOCTYPE, head, body, and all CSS in a <style> tag.
Include <link href="https://fonts.googleapis.com/css2?family=Inter:wght@300;400;500;600;700&display=swap" rel="stylesheet"> for clean typography.
Optionally use <script src="https://cdn.tailwindcss.com"></script> if it helps.

Design guidelines:
- Use modern CSS (flexbox, grid, custom properties)
- Good visual hierarchy: clear headings, readable body text, balanced whitespace
- Professional color palettes with proper contrast ratios
- Subtle shadows, rounded corners, smooth gradients where appropriate
- Realistic placeholder content (not lorem ipsum - use believable text)

CRITICAL - Each variation MUST be DRAMATICALLY different. Not subtle tweaks - completely different visual identities:

**Variation A - "Bold & Dark"**: dark background, high contrast accent colors, large bold typography, full-width sections with strong visual impact.
**Variation B - "Light & Clean"**: bright background, soft pastel or earth-tone accents, elegant thin typography, card-based layouts with subtle shadows.
**Variation C - "Creative & Colorful"**: gradient or split-color sections, rich multi-color palette, asymmetric grids or overlapping elements, playful but professional.

Each mockup should look like it was designed by a DIFFERENT designer for a DIFFERENT brand.

Save files to:
  %[3]s/%[4]s_mockup_a.html
  %[3]s/%[4]s_mockup_b.html
  %[3]s/%[4]s_mockup_c.html

**STEP 2 - Screenshot Each Mockup:**
Use this Playwright script (run with: node /tmp/mockup_screenshot.js):

`+"```javascript"+`
const { chromium } = require('playwright');
(async () => {
  const browser = await chromium.launch();
  const page = await browser.newPage();
  await page.setViewportSize({ width: 1280, height: 720 });
  for (const v of ['a', 'b', 'c']) {
    await page.goto('file://%[3]s/%[4]s_mockup_' + v + '.html');
    await page.waitForTimeout(500);
    await page.screenshot({ path: '%[5]s/%[4]s_mockup_' + v + '.png', fullPage: true });
  }
  await browser.close();
})();
`+"```"+`

**STEP 3 - Self-Review (REQUIRED):**
Read EACH screenshot you just created. For each one, analyze layout and spacing, typography, colors, and overall polish. Write a brief critique for each.

**STEP 4 - Refine the Best:**
Based on your self-review, pick the strongest design (or combine the best elements from all three).
Create a final polished version:
  %[3]s/%[4]s_mockup_final.html
Screenshot it:
  %[5]s/%[4]s_mockup_final.png
Read the final screenshot to verify it meets your quality standards. If not, refine again.

**STEP 5 - Present Results:**
In your response, explicitly list all screenshot paths so they are auto-discovered:
  %[5]s/%[4]s_mockup_a.png
  %[5]s/%[4]s_mockup_b.png
  %[5]s/%[4]s_mockup_c.png
  %[5]s/%[4]s_mockup_final.png

Explain your design choices for each variation and why you chose/refined the final version.
Include the complete HTML source for the final mockup in a code block.

IMPORTANT: The HTML files will be served for interactive preview. Make sure they are complete, valid HTML documents that render correctly standalone.
---

`, urlSection, screenshotSection, tempDir, job.ID, screenshotDir)
}
