/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package dispatch glues the secret store, the bot runtime and a handler
// module together for a single webhook invocation.
//
// Every invocation runs the same sequence:
//
//  1. Resolve APP_ID, PRIVATE_KEY and WEBHOOK_SECRET from the secret store.
//  2. Construct a bot.App from the three secrets at debug verbosity.
//  3. Decorate the App so every handler sees a non-nil Context.Log.
//  4. Give the App itself the fallback logger when it has none.
//  5. Let the handler module register its callbacks on the decorated App.
//  6. Hand the raw request to the App and return its response unmodified.
//
// Failures in steps 1 and 2 surface as *secrets.SecretResolutionError and
// *bot.RuntimeConstructionError. A registration error is returned as is.
package dispatch
